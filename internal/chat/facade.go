package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"replichat/internal/types"
)

// Mode reports which backend the facade is currently answering from.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

// FacadeConfig tunes the degrade/recover policy.
type FacadeConfig struct {
	// PersonaName labels the fabricated persona when degraded.
	PersonaName string

	// ReprobeInterval controls whether the facade retries the live backend
	// after degrading. Zero means never re-probe within the process lifetime
	// (the conservative default: a flapping backend stays degraded). A
	// positive interval lets the next call after the interval elapses attempt
	// the live client again.
	ReprobeInterval time.Duration

	Logger *zap.Logger
}

// Facade wraps a live client and substitutes a simulated backend on failure,
// so callers never observe a hard failure after startup. Construction
// smoke-tests the live client once; per-call failures also degrade.
type Facade struct {
	logger  *zap.Logger
	sim     *Simulated
	reprobe time.Duration

	mu         sync.Mutex
	mode       Mode
	live       Client
	degradedAt time.Time
}

// NewFacade builds a facade over the given live client. A nil live client or
// a failed smoke test degrades immediately to the simulated backend.
func NewFacade(ctx context.Context, live Client, cfg FacadeConfig) *Facade {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Facade{
		logger:  logger,
		sim:     NewSimulated(cfg.PersonaName),
		reprobe: cfg.ReprobeInterval,
		mode:    ModeLive,
		live:    live,
	}
	if live == nil {
		f.degrade(ErrNotInitialized)
		return f
	}
	if _, err := live.ListPersonas(ctx); err != nil {
		f.degrade(err)
	}
	return f
}

// Mode returns the facade's current mode.
func (f *Facade) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// liveClient returns the live client when it should be attempted: always in
// live mode, and in simulated mode only once the re-probe interval (if any)
// has elapsed since degradation.
func (f *Facade) liveClient() Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live == nil {
		return nil
	}
	if f.mode == ModeLive {
		return f.live
	}
	if f.reprobe > 0 && time.Since(f.degradedAt) >= f.reprobe {
		return f.live
	}
	return nil
}

func (f *Facade) degrade(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode != ModeSimulated {
		f.logger.Warn("live backend unavailable, switching to simulated responses", zap.Error(err))
	}
	f.mode = ModeSimulated
	f.degradedAt = time.Now()
}

func (f *Facade) restore() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode != ModeLive {
		f.logger.Info("live backend recovered, leaving simulated mode")
		f.mode = ModeLive
	}
}

// ListPersonas lists personas through the active backend.
func (f *Facade) ListPersonas(ctx context.Context) (*types.PersonaPage, error) {
	if live := f.liveClient(); live != nil {
		page, err := live.ListPersonas(ctx)
		if err == nil {
			f.restore()
			return page, nil
		}
		f.degrade(err)
	}
	return f.sim.ListPersonas(ctx)
}

// CreateSession opens a session through the active backend.
func (f *Facade) CreateSession(ctx context.Context, personaID, initialMessage string) (*types.ChatSession, error) {
	if live := f.liveClient(); live != nil {
		session, err := live.CreateSession(ctx, personaID, initialMessage)
		if err == nil {
			f.restore()
			return session, nil
		}
		f.degrade(err)
	}
	return f.sim.CreateSession(ctx, personaID, initialMessage)
}

// SendMessage sends through the active backend, degrading to a best-effort
// simulated reply instead of propagating live-client errors.
func (f *Facade) SendMessage(ctx context.Context, sessionID, text string) (*types.Message, error) {
	if live := f.liveClient(); live != nil {
		msg, err := live.SendMessage(ctx, sessionID, text)
		if err == nil {
			f.restore()
			return msg, nil
		}
		f.degrade(err)
	}
	return f.sim.SendMessage(ctx, sessionID, text)
}

// GetHistory reads the transcript through the active backend.
func (f *Facade) GetHistory(ctx context.Context, sessionID string) ([]types.Message, error) {
	if live := f.liveClient(); live != nil {
		messages, err := live.GetHistory(ctx, sessionID)
		if err == nil {
			f.restore()
			return messages, nil
		}
		f.degrade(err)
	}
	return f.sim.GetHistory(ctx, sessionID)
}
