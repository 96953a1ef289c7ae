// Package session owns the single active chat session: the append-only
// transcript, the loading/error flags, and the guarded one-shot
// initialization that provisions the backend and builds the resilient
// client facade.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"replichat/internal/chat"
	"replichat/internal/config"
	"replichat/internal/provision"
	"replichat/internal/types"
)

// State is the manager's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"

	// StateError records a failed initialization attempt. It is absorbing
	// with respect to the transcript (nothing is rolled back) but retryable:
	// a later Initialize runs a fresh attempt.
	StateError State = "error"
)

// Snapshot is the read model consumed by the UI layer. Messages are copied,
// never aliased to the internal transcript.
type Snapshot struct {
	Ready    bool
	Loading  bool
	Err      string
	Messages []types.Message
}

// Manager drives initialization and message exchange. All exported methods
// are safe for concurrent use; concurrent Initialize calls coalesce into a
// single in-flight attempt and sends are serialized per session so the
// transcript always reads as user/assistant pairs in call order.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	initGroup singleflight.Group
	sendMu    sync.Mutex

	mu      sync.Mutex
	state   State
	errMsg  string
	sending bool
	facade  *chat.Facade
	session *types.ChatSession
}

// NewManager creates a manager in the uninitialized state. Nothing happens
// until the first Initialize call.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		state:  StateUninitialized,
	}
}

// Initialize provisions the backend and opens the session. It is lazy and
// idempotent: once ready it returns immediately, and concurrent callers
// during an in-flight attempt join that attempt instead of issuing duplicate
// provisioning sequences. A failed attempt is retryable.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	_, err, _ := m.initGroup.Do("initialize", func() (interface{}, error) {
		return nil, m.initialize(ctx)
	})
	return err
}

func (m *Manager) initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	m.state = StateInitializing
	m.errMsg = ""
	m.mu.Unlock()

	result, err := provision.Bootstrap(ctx, m.cfg, m.logger)
	if err != nil {
		m.logger.Error("provisioning failed, chat will run degraded", zap.Error(err))
		// No persona uuid to target. A simulated-only facade keeps the chat
		// surface alive while the error is shown and retries stay possible.
		m.mu.Lock()
		m.state = StateError
		m.errMsg = err.Error()
		if m.facade == nil {
			m.facade = chat.NewFacade(ctx, nil, chat.FacadeConfig{
				PersonaName: m.cfg.Persona.Name,
				Logger:      m.logger,
			})
			m.session = &types.ChatSession{
				ID:        "local",
				ReplicaID: "local",
				Messages:  []types.Message{},
			}
		}
		m.mu.Unlock()
		return err
	}

	facade := chat.NewFacade(ctx, chat.NewLiveClient(result.Client), chat.FacadeConfig{
		PersonaName: m.cfg.Persona.Name,
		Logger:      m.logger,
	})
	session, err := facade.CreateSession(ctx, result.PersonaID, "")
	if err != nil {
		// The facade degrades rather than erroring; this only fires for a
		// cancelled context.
		m.mu.Lock()
		m.state = StateError
		m.errMsg = err.Error()
		m.mu.Unlock()
		return err
	}

	if greeting := m.cfg.Persona.Greeting; greeting != "" {
		session.Messages = append(session.Messages, types.Message{
			ID:        uuid.NewString(),
			Role:      types.RoleAssistant,
			Content:   greeting,
			Timestamp: time.Now(),
		})
	}

	m.mu.Lock()
	m.state = StateReady
	m.errMsg = ""
	m.facade = facade
	m.session = session
	m.mu.Unlock()

	m.logger.Info("session ready",
		zap.String("session_id", session.ID),
		zap.String("mode", string(facade.Mode())))
	return nil
}

// Send appends the user message optimistically, exchanges it through the
// facade, and appends the assistant reply. On failure the error string is
// recorded and the optimistic user message stays in the transcript.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.Lock()
	if m.facade == nil || m.session == nil {
		m.mu.Unlock()
		return chat.ErrNotInitialized
	}
	facade := m.facade
	sessionID := m.session.ID
	m.session.Messages = append(m.session.Messages, types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	m.sending = true
	m.errMsg = ""
	m.mu.Unlock()

	reply, err := facade.SendMessage(ctx, sessionID, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sending = false
	if err != nil {
		m.errMsg = err.Error()
		return err
	}
	m.session.Messages = append(m.session.Messages, *reply)
	return nil
}

// Snapshot returns the current UI-facing state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Ready:   m.state == StateReady,
		Loading: m.state == StateInitializing || m.sending,
		Err:     m.errMsg,
	}
	if m.session != nil {
		snap.Messages = append([]types.Message{}, m.session.Messages...)
	}
	return snap
}

// State returns the manager's lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Facade exposes the active client facade, or nil before initialization.
// Read-only consumers (persona listings) use it directly.
func (m *Manager) Facade() *chat.Facade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facade
}
