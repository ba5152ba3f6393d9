package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
)

// Handle wraps one live session with its usage bookkeeping. It is owned
// exclusively by a Manager and never shared across concurrent executions.
type Handle struct {
	Session      Session
	Identity     Identity
	CreatedAt    time.Time
	RequestCount int
}

// ManagerConfig controls the rotation policy.
type ManagerConfig struct {
	// RotationInterval is the request count that triggers rotation.
	RotationInterval int

	// MaxSessionAge is the session age that triggers rotation.
	MaxSessionAge time.Duration

	// Disabled turns rotation checks off; the first session lives forever.
	Disabled bool
}

// Manager owns the lifecycle of one automation session: lazy open, request
// accounting, and rotation to a fresh identity when the policy says so.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	cfg     ManagerConfig
	logger  core.Logger
	rng     *rand.Rand

	handle *Handle
	// cookies persisted from the previous session, restored best-effort
	// after rotation.
	cookies []Cookie
	// rotations counts completed rotations, exposed for observability.
	rotations int
}

// NewManager returns a Manager that opens sessions through factory.
func NewManager(factory Factory, cfg ManagerConfig, logger core.Logger) *Manager {
	if cfg.RotationInterval <= 0 {
		cfg.RotationInterval = core.DefaultRotationInterval
	}
	if cfg.MaxSessionAge <= 0 {
		cfg.MaxSessionAge = core.DefaultMaxSessionAge
	}
	return &Manager{
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Current returns the live session, opening one on first use.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		if err := m.openLocked(ctx); err != nil {
			return nil, err
		}
	}
	return m.handle.Session, nil
}

// RecordRequest increments the request counter and rotates the session if
// the counter or the session age has crossed its threshold. A rotation
// failure is fatal to the batch; there is no lower-level resource to fall
// back to.
func (m *Manager) RecordRequest(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		if err := m.openLocked(ctx); err != nil {
			return err
		}
	}

	m.handle.RequestCount++
	if m.cfg.Disabled {
		return nil
	}

	age := time.Since(m.handle.CreatedAt)
	if m.handle.RequestCount >= m.cfg.RotationInterval || age >= m.cfg.MaxSessionAge {
		m.logger.Info().
			Int("request_count", m.handle.RequestCount).
			Str("session_age", age.Round(time.Second).String()).
			Msg("Rotating automation session")
		return m.rotateLocked(ctx)
	}
	return nil
}

// Rotate forces an immediate rotation regardless of thresholds.
func (m *Manager) Rotate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return m.openLocked(ctx)
	}
	return m.rotateLocked(ctx)
}

// RequestCount returns the current handle's request counter.
func (m *Manager) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return 0
	}
	return m.handle.RequestCount
}

// Rotations returns the number of completed rotations.
func (m *Manager) Rotations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotations
}

// Close shuts down the live session, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil
	}
	err := m.handle.Session.Close(ctx)
	m.handle = nil
	return err
}

func (m *Manager) openLocked(ctx context.Context) error {
	identity := NewIdentity(m.rng)
	sess, err := m.factory(ctx, identity)
	if err != nil {
		return fmt.Errorf("opening automation session: %w", err)
	}
	m.handle = &Handle{
		Session:   sess,
		Identity:  identity,
		CreatedAt: time.Now(),
	}
	if len(m.cookies) > 0 {
		if carrier, ok := sess.(CookieCarrier); ok {
			if err := carrier.SetCookies(ctx, m.cookies); err != nil {
				m.logger.Warn().Err(err).Msg("Could not restore cookies into new session")
			}
		}
	}
	return nil
}

func (m *Manager) rotateLocked(ctx context.Context) error {
	old := m.handle.Session

	// Persist durable artifacts best-effort before tearing the session down.
	if carrier, ok := old.(CookieCarrier); ok {
		cookies, err := carrier.Cookies(ctx)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Could not persist cookies before rotation")
		} else {
			m.cookies = cookies
		}
	}

	if err := old.Close(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Error closing session during rotation")
	}
	m.handle = nil

	if err := m.openLocked(ctx); err != nil {
		return fmt.Errorf("session rotation: %w", err)
	}
	m.rotations++
	return nil
}
