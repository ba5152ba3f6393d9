package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/log/sinks"
)

type LintCmd struct {
	Workflow string `help:"The workflow configuration file." default:"fieldhand.yml"`
	Varfile  string `help:"The YAML varfile for input variables." default:"fhvars.yml"`
}

func (l *LintCmd) Run() error {
	router := log.NewRouter(sinks.NewConsoleSink())
	baseLogger := zerolog.New(router).With().Timestamp().Logger()
	logger := log.NewZerologAdapter(baseLogger)

	logger.Info().Msgf("Validating %s using %s", l.Workflow, l.Varfile)

	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("No .env file found, relying on real ENV for {{ env.* }} vars")
	}

	wf, err := core.LoadWorkflowFromFile(l.Workflow)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to load workflow file %s", l.Workflow)
		return fmt.Errorf("loading workflow file %q: %w", l.Workflow, err)
	}
	logger.Info().Msgf("Successfully loaded workflow: %s", wf.Name)

	var varCtx core.VarContext
	if _, statErr := os.Stat(l.Varfile); os.IsNotExist(statErr) {
		logger.Warn().Msgf("Varfile %s not found. Required inputs might fail validation if not defaulted.", l.Varfile)
		varCtx = make(core.VarContext)
	} else {
		varCtx, err = core.ResolveVarfile(l.Varfile)
		if err != nil {
			logger.Error().Err(err).Msgf("Could not resolve varfile %q", l.Varfile)
			return fmt.Errorf("resolving varfile %q: %w", l.Varfile, err)
		}
		logger.Info().Msgf("Successfully loaded and resolved varfile: %s", l.Varfile)
	}

	core.ApplyInputDefaults(wf, varCtx)
	if err := core.ValidateRequiredInputs(wf, varCtx); err != nil {
		logger.Error().Err(err).Msg("Required input validation failed")
		return fmt.Errorf("validating required inputs: %w", err)
	}
	logger.Info().Msg("Required input validation passed")

	if _, err := core.ResolveCredentials(wf.Credentials, varCtx); err != nil {
		logger.Error().Err(err).Msg("Credential resolution failed")
		return fmt.Errorf("resolving credentials: %w", err)
	}

	logger.Info().Msg("Validating individual steps...")
	registry := actions.DefaultRegistry()
	// Add a dummy item so "{{ item }}" references lint clean.
	lintVars := varCtx.Clone()
	lintVars["item"] = "lint-item"
	for i, step := range wf.Steps {
		stepLogger := logger.With().Int("step", i).Str("action", step.Action).Logger()

		if !registry.Known(step.Action) {
			stepLogger.Error().Msg("Unknown action")
			return fmt.Errorf("step %d uses unknown action %q", i, step.Action)
		}
		if _, err := core.ResolveStepVariables(&step, lintVars); err != nil {
			stepLogger.Error().Err(err).Msg("Step variable resolution failed")
			return fmt.Errorf("resolving variables for step %d (%s): %w", i, step.Action, err)
		}
		stepLogger.Info().Msg("Step configuration validation passed")
	}

	logger.Info().Msg("Successfully validated workflow configuration ✅")
	return nil
}
