// replichat provisions a conversational-AI backend and chats against it,
// degrading to locally simulated answers when the backend is unavailable.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"replichat/internal/chat"
	"replichat/internal/config"
	"replichat/internal/provision"
	"replichat/internal/session"
	"replichat/internal/store"
	"replichat/internal/types"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "replichat",
	Short: "replichat - resilient client for the conversational-AI backend",
	Long: `replichat bootstraps a service user and a named AI persona on the remote
multi-tenant backend, then exchanges chat messages against it.

Provisioning is idempotent: re-runs adopt existing records, and creation
conflicts fall back to a guaranteed-unique persona slug. When the backend is
unreachable or erroring, chat degrades to locally simulated answers instead
of failing.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("backend:     %s (api version %s)\n", cfg.API.BaseURL, cfg.API.Version)
		fmt.Printf("user id:     %s\n", cfg.Tenant.UserID)
		fmt.Printf("persona:     %s\n", cfg.Persona.Slug)
		if cfg.Tenant.Secret == "" {
			fmt.Println("tenant:      NOT CONFIGURED (set TENANT_SECRET)")
		} else {
			fmt.Println("tenant:      configured")
		}
		return nil
	},
}

// provisionCmd runs the bootstrap once and prints the persona uuid.
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Ensure the service user and persona exist on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		result, err := provision.Bootstrap(ctx, cfg, logger)
		if err != nil {
			return err
		}
		fmt.Printf("persona uuid: %s\n", result.PersonaID)
		return nil
	},
}

// personasCmd lists personas through the facade; works degraded.
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List personas visible to the tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		mgr := session.NewManager(cfg, logger)
		if err := mgr.Initialize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: running degraded: %v\n", err)
		}
		facade := mgr.Facade()
		if facade == nil {
			return chat.ErrNotInitialized
		}
		page, err := facade.ListPersonas(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d persona(s) [%s mode]\n", page.Total, facade.Mode())
		for _, p := range page.Items {
			fmt.Printf("  %-24s %s  %s\n", p.Slug, p.UUID, p.Name)
		}
		return nil
	},
}

// chatCmd runs the interactive chat loop.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		mgr := session.NewManager(cfg, logger)
		if err := mgr.Initialize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: running degraded: %v\n", err)
		}

		snap := mgr.Snapshot()
		for _, msg := range snap.Messages {
			printMessage(msg.Role, msg.Content)
		}
		fmt.Println(`type a message, or /quit to exit`)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				break
			}
			if err := mgr.Send(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				continue
			}
			snap := mgr.Snapshot()
			if len(snap.Messages) > 0 {
				last := snap.Messages[len(snap.Messages)-1]
				printMessage(last.Role, last.Content)
			}
		}

		return archiveTranscript(ctx, mgr)
	},
}

func printMessage(role types.Role, content string) {
	fmt.Printf("[%s] %s\n", role, content)
}

// archiveTranscript saves the finished transcript to the configured document
// store so the surrounding app can read it back.
func archiveTranscript(ctx context.Context, mgr *session.Manager) error {
	snap := mgr.Snapshot()
	if len(snap.Messages) == 0 {
		return nil
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	key := fmt.Sprintf("transcript-%s", time.Now().Format("20060102-150405"))
	if err := st.Put(ctx, "transcripts", key, snap.Messages); err != nil {
		return fmt.Errorf("failed to archive transcript: %w", err)
	}
	logger.Info("transcript archived",
		zap.String("key", key), zap.Int("messages", len(snap.Messages)))
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "replichat.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
