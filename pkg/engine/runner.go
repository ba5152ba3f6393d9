package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/antidetect"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/session"
)

// RunConfig carries everything a batch run needs. One RunConfig maps to one
// session/executor/breaker triple; concurrent batches must use independent
// configs and factories.
type RunConfig struct {
	Workflow *core.Workflow

	// Registry defaults to actions.DefaultRegistry when nil.
	Registry *actions.Registry

	// Factory opens automation sessions. Required.
	Factory session.Factory

	// Vars is the resolved varfile context. The current work item is exposed
	// to step params as {{ item }}.
	Vars core.VarContext

	// Items is the batch of work items (e.g. SKUs).
	Items []string

	// CaptchaResolver, when set, is invoked to clear detected challenges
	// instead of the default bounded wait.
	CaptchaResolver antidetect.Resolver

	Logger core.Logger
}

// RunWorkflow executes the workflow once per work item, gating every item
// through a circuit breaker and the anti-detection coordinator. It returns a
// result per attempted item plus a batch summary. Cancellation is honored
// between items and between steps; the per-item results gathered so far are
// still returned.
func RunWorkflow(ctx context.Context, cfg RunConfig) ([]core.ItemResult, core.BatchSummary, error) {
	if cfg.Workflow == nil {
		return nil, core.BatchSummary{}, fmt.Errorf("run config is missing a workflow")
	}
	if cfg.Factory == nil {
		return nil, core.BatchSummary{}, fmt.Errorf("run config is missing a session factory")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = actions.DefaultRegistry()
	}
	vars := cfg.Vars
	if vars == nil {
		vars = make(core.VarContext)
	}

	wf := cfg.Workflow
	wf.AntiDetect.Normalize()
	wf.Breaker.Normalize()

	creds, err := core.ResolveCredentials(wf.Credentials, vars)
	if err != nil {
		return nil, core.BatchSummary{}, err
	}

	manager := session.NewManager(cfg.Factory, session.ManagerConfig{
		RotationInterval: wf.AntiDetect.Rotation.RotationInterval,
		MaxSessionAge:    wf.AntiDetect.Rotation.MaxSessionAge,
		Disabled:         !wf.AntiDetect.RotationEnabled(),
	}, logger)
	defer func() {
		if err := manager.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("Error closing session manager")
		}
	}()

	coordinator := antidetect.NewCoordinator(wf.AntiDetect, manager, logger)
	if cfg.CaptchaResolver != nil {
		coordinator.SetCaptchaResolver(cfg.CaptchaResolver)
	}
	breaker := NewCircuitBreaker(wf.Breaker)

	start := time.Now()
	results := make([]core.ItemResult, 0, len(cfg.Items))
	summary := core.BatchSummary{Total: len(cfg.Items)}

	for _, item := range cfg.Items {
		if ctx.Err() != nil {
			summary.Duration = time.Since(start)
			return results, summary, ctx.Err()
		}

		itemLogger := logger.With().Str("item", item).Logger()
		result := runItem(ctx, itemParams{
			item:        item,
			wf:          wf,
			vars:        vars,
			creds:       creds,
			registry:    registry,
			coordinator: coordinator,
			manager:     manager,
			breaker:     breaker,
			logger:      itemLogger,
		})
		results = append(results, result)

		switch {
		case result.Skipped:
			summary.Skipped++
		case result.Success:
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}

	summary.Duration = time.Since(start)
	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Batch finished")
	return results, summary, nil
}

type itemParams struct {
	item        string
	wf          *core.Workflow
	vars        core.VarContext
	creds       core.Credentials
	registry    *actions.Registry
	coordinator *antidetect.Coordinator
	manager     *session.Manager
	breaker     *CircuitBreaker
	logger      core.Logger
}

func runItem(ctx context.Context, p itemParams) core.ItemResult {
	itemVars := p.vars.Clone()
	itemVars["item"] = p.item

	steps, err := resolveSteps(p.wf.Steps, itemVars)
	if err != nil {
		return core.ItemResult{Item: p.item, Error: err.Error()}
	}

	executor := NewExecutor(p.registry, p.coordinator, p.manager, p.wf, p.logger)
	executor.SetCredentials(p.creds)

	var fields map[string]any
	callErr := p.breaker.Call(func() error {
		// Retries on detection signals happen at whole-item granularity; the
		// breaker only sees the final outcome.
		for attempt := 0; ; attempt++ {
			resultMap, execErr := executor.Execute(ctx, steps)
			fields = resultMap.Snapshot()
			if execErr == nil {
				return nil
			}

			action := ""
			var stepErr *core.StepExecutionError
			if errors.As(execErr, &stepErr) {
				action = stepErr.Action
			}
			if p.coordinator.OnError(ctx, execErr, action, attempt) {
				p.logger.Warn().Err(execErr).Int("attempt", attempt+1).Msg("Retrying item after recovery")
				continue
			}
			return execErr
		}
	})

	if callErr != nil {
		if errors.Is(callErr, core.ErrCircuitOpen) {
			p.logger.Warn().Msg("Item skipped, circuit breaker open")
			return core.ItemResult{Item: p.item, Skipped: true, Error: callErr.Error()}
		}
		return core.ItemResult{Item: p.item, Fields: fields, Error: callErr.Error()}
	}
	return core.ItemResult{Item: p.item, Success: true, Fields: fields}
}

func resolveSteps(steps []core.Step, vars core.VarContext) ([]core.Step, error) {
	resolved := make([]core.Step, 0, len(steps))
	for i := range steps {
		step, err := core.ResolveStepVariables(&steps[i], vars)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *step)
	}
	return resolved, nil
}
