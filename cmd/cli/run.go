package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/engine"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/log/sinks"
	"github.com/calewin/fieldhand/pkg/security"
	"github.com/calewin/fieldhand/pkg/session"
)

type RunCmd struct {
	Workflow  string   `help:"The workflow configuration file." default:"fieldhand.yml"`
	Varfile   string   `help:"The YAML varfile for input variables." default:"fhvars.yml"`
	Items     []string `help:"Work items to scrape (e.g. SKUs). Repeatable."`
	ItemsFile string   `help:"File with one work item per line."`
	Output    string   `help:"Write per-item results as JSON to this file." default:"results.json"`
	Headless  bool     `help:"Run the browser headless." default:"true" negatable:""`
	LogFile   string   `help:"JSON log file path." default:"fieldhand.log.json"`
}

func (r *RunCmd) Run() error {
	runID := uuid.New().String()

	consoleSink := sinks.NewConsoleSink()
	fileSink, err := sinks.NewFileSink(r.LogFile)
	if err != nil {
		return fmt.Errorf("could not create file log sink: %w", err)
	}

	router := log.NewRouter(consoleSink, fileSink)
	defer func() {
		if err := router.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()

	baseLogger := zerolog.New(router).With().Timestamp().Str("run_id", runID).Logger()
	logger := log.NewZerologAdapter(baseLogger)

	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("No .env file found, relying on real ENV")
	}

	wf, err := core.LoadWorkflowFromFile(r.Workflow)
	if err != nil {
		return fmt.Errorf("could not load workflow file: %w", err)
	}

	varCtx, err := loadVars(r.Varfile, logger)
	if err != nil {
		return err
	}
	core.ApplyInputDefaults(wf, varCtx)
	if err := core.ValidateRequiredInputs(wf, varCtx); err != nil {
		return fmt.Errorf("validating required inputs: %w", err)
	}

	registry := actions.DefaultRegistry()
	if err := validateActions(wf, registry); err != nil {
		return err
	}

	creds, err := core.ResolveCredentials(wf.Credentials, varCtx)
	if err != nil {
		return err
	}
	router.SetRedactor(security.NewRedactor(wf, varCtx, creds))

	items, err := r.collectItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		// A workflow without items still runs once, e.g. a single-page scrape.
		items = []string{""}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msgf("Starting workflow %q (run ID: %s) with %d item(s)", wf.Name, runID, len(items))

	factory := session.NewChromeFactory(session.ChromeOptions{Headless: r.Headless})
	results, summary, runErr := engine.RunWorkflow(ctx, engine.RunConfig{
		Workflow: wf,
		Registry: registry,
		Factory:  factory,
		Vars:     varCtx,
		Items:    items,
		Logger:   logger,
	})
	if runErr != nil {
		logger.Error().Err(runErr).Msg("Batch aborted")
	}

	logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("duration", summary.Duration.Round(time.Millisecond).String()).
		Msg("Run complete")

	if r.Output != "" {
		if err := writeResults(r.Output, results); err != nil {
			return err
		}
		logger.Info().Msgf("Wrote %d result(s) to %s", len(results), r.Output)
	}

	if runErr != nil {
		return fmt.Errorf("workflow run aborted: %w", runErr)
	}
	return nil
}

func (r *RunCmd) collectItems() ([]string, error) {
	items := append([]string{}, r.Items...)
	if r.ItemsFile == "" {
		return items, nil
	}
	data, err := os.ReadFile(r.ItemsFile)
	if err != nil {
		return nil, fmt.Errorf("reading items file %q: %w", r.ItemsFile, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items, nil
}

func loadVars(varfile string, logger core.Logger) (core.VarContext, error) {
	if _, err := os.Stat(varfile); os.IsNotExist(err) {
		logger.Warn().Msgf("Varfile %s not found, proceeding without global variables", varfile)
		return make(core.VarContext), nil
	}
	varCtx, err := core.ResolveVarfile(varfile)
	if err != nil {
		return nil, fmt.Errorf("resolving varfile %q: %w", varfile, err)
	}
	return varCtx, nil
}

func validateActions(wf *core.Workflow, registry *actions.Registry) error {
	for i, step := range wf.Steps {
		if !registry.Known(step.Action) {
			return fmt.Errorf("step %d uses unknown action %q", i, step.Action)
		}
	}
	return nil
}

func writeResults(path string, results []core.ItemResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results to %q: %w", path, err)
	}
	return nil
}
