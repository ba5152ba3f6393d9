package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/core"
)

// Coordinator is the resilience hook surface invoked around every step. The
// anti-detection coordinator is the production implementation; tests swap in
// lighter ones.
type Coordinator interface {
	PreAction(ctx context.Context, action string) error
	PostAction(ctx context.Context, action string, success bool)
	OnError(ctx context.Context, err error, action string, retryCount int) bool
}

// ExecState is the executor's lifecycle state.
type ExecState int

const (
	ExecIdle ExecState = iota
	ExecRunning
	ExecCompleted
	ExecFailed
)

// Executor interprets an ordered step list against one automation session.
// It owns the result map for the duration of one item and lends it to each
// handler for a single call.
type Executor struct {
	registry    *actions.Registry
	coordinator Coordinator
	sessions    actions.SessionProvider
	selectors   map[string]core.SelectorSpec
	credentials core.Credentials
	logger      core.Logger

	state ExecState
}

// NewExecutor wires an executor. coordinator may be nil, in which case no
// resilience hooks run (useful in tests and simple embeddings).
func NewExecutor(
	registry *actions.Registry,
	coordinator Coordinator,
	sessions actions.SessionProvider,
	wf *core.Workflow,
	logger core.Logger,
) *Executor {
	selectors := make(map[string]core.SelectorSpec, len(wf.Selectors))
	for _, s := range wf.Selectors {
		selectors[s.Name] = s
	}
	return &Executor{
		registry:    registry,
		coordinator: coordinator,
		sessions:    sessions,
		selectors:   selectors,
		credentials: wf.Credentials,
		logger:      logger,
		state:       ExecIdle,
	}
}

// SetCredentials replaces the credentials used by the login action, after
// varfile resolution.
func (e *Executor) SetCredentials(creds core.Credentials) {
	e.credentials = creds
}

// State returns the executor's lifecycle state.
func (e *Executor) State() ExecState { return e.state }

// Execute runs the steps in order against a fresh result map. On failure the
// returned map still holds everything written before the failing step; prior
// field writes are never rolled back.
func (e *Executor) Execute(ctx context.Context, steps []core.Step) (core.ResultMap, error) {
	results := make(core.ResultMap)
	e.state = ExecRunning

	if err := e.runSteps(ctx, steps, results); err != nil {
		e.state = ExecFailed
		return results, err
	}

	e.state = ExecCompleted
	return results, nil
}

func (e *Executor) runSteps(ctx context.Context, steps []core.Step, results core.ResultMap) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("execution cancelled before step %d: %w", i, err)
		}

		action := strings.ToLower(strings.TrimSpace(step.Action))
		stepLogger := e.logger.With().Str("action", action).Logger()

		if e.coordinator != nil {
			if err := e.coordinator.PreAction(ctx, action); err != nil {
				if errors.Is(err, core.ErrBlockingDetected) || errors.Is(err, core.ErrCaptchaDetected) {
					return &core.StepExecutionError{Action: action, Index: i, Err: err}
				}
				return err
			}
		}

		factory, ok := e.registry.Resolve(action)
		if !ok {
			return &core.UnknownActionError{Action: step.Action}
		}

		ec := &actions.ExecContext{
			Results:     results,
			Sessions:    e.sessions,
			Selectors:   e.selectors,
			Credentials: e.credentials,
			Logger:      stepLogger,
			RunSteps: func(subCtx context.Context, subSteps []core.Step) error {
				return e.runSteps(subCtx, subSteps, results)
			},
		}

		stepLogger.Debug().Int("step", i).Msg("Executing step")
		execErr := factory().Execute(ctx, ec, actions.Params(step.Params))

		if e.coordinator != nil {
			e.coordinator.PostAction(ctx, action, execErr == nil)
		}

		if execErr != nil {
			stepLogger.Error().Err(execErr).Int("step", i).Msg("Step failed")
			return &core.StepExecutionError{Action: action, Index: i, Err: execErr}
		}
	}
	return nil
}
