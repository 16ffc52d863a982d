// Package internal provides the App struct that wires all components of the
// backlog relay together and initializes the CLI layer.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/backlog-relay/internal/cli"
	"github.com/valter-silva-au/backlog-relay/internal/core"
	"github.com/valter-silva-au/backlog-relay/internal/integration"
	"github.com/valter-silva-au/backlog-relay/internal/observability"
	"github.com/valter-silva-au/backlog-relay/internal/storage"
	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// App holds all service dependencies for the backlog relay.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Storage layer
	RunHistory storage.RunHistory

	// Integration
	Integrator integration.Integrator

	// Core services
	Processor *core.Processor
	Pipeline  *core.Pipeline

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// ResolveBasePath returns the directory holding relay state and config:
// $BLR_HOME when set, otherwise the current working directory.
func ResolveBasePath() string {
	if base := os.Getenv("BLR_HOME"); base != "" {
		return base
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// NewApp creates and wires all components of the backlog relay.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		// Fall back to defaults if the config file is unreadable.
		cfg = core.DefaultConfig()
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.DocumentPath) {
		cfg.DocumentPath = filepath.Join(basePath, cfg.DocumentPath)
	}
	if !filepath.IsAbs(cfg.ReportDir) {
		cfg.ReportDir = filepath.Join(basePath, cfg.ReportDir)
	}
	app.Config = cfg

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".blr_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if the log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Slack.WebhookURL)
	}

	// --- Storage layer ---
	app.RunHistory = storage.NewRunHistory(basePath)
	_ = app.RunHistory.Load() // Non-fatal: empty history on first use.

	// --- Integration ---
	app.Integrator = selectIntegrator(cfg, app.EventLog)

	// --- Core services ---
	app.Processor = core.NewProcessor(app.Integrator, app.EventLog, nil, cfg.Memory.Timeout)
	app.Pipeline = core.NewPipeline(
		cfg.DocumentPath,
		cfg.ReportDir,
		app.Processor,
		app.EventLog,
		&runRecorderAdapter{history: app.RunHistory},
		app.Notifier,
		nil,
	)

	// --- CLI layer ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Pipeline = app.Pipeline
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	cli.RunHistory = app.RunHistory

	return app, nil
}

// selectIntegrator picks the downstream implementation by configuration: the
// real memory integrator when enabled and reachable, the no-op otherwise.
// Connection failure degrades to the no-op so local processing continues.
func selectIntegrator(cfg *models.Config, events observability.EventLog) integration.Integrator {
	if !cfg.Memory.Enabled {
		return integration.NewNoopIntegrator()
	}

	mem := integration.NewMemoryIntegrator(cfg.Memory, cfg.Recipients)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Memory.Timeout)
	defer cancel()
	if err := mem.Connect(ctx); err != nil {
		if events != nil {
			_ = events.Write(observability.Event{
				Time:    time.Now(),
				Level:   "WARN",
				Type:    observability.EventIntegrationFailed,
				Message: "memory server unavailable, continuing without integration: " + err.Error(),
			})
		}
		return integration.NewNoopIntegrator()
	}
	return mem
}

// runRecorderAdapter bridges core.RunRecorder onto the storage run history.
type runRecorderAdapter struct {
	history storage.RunHistory
}

func (a *runRecorderAdapter) RecordRun(summary core.RunSummary, startedAt time.Time) error {
	record := storage.RunRecord{
		StartedAt:        startedAt.Format(models.ProcessedAtLayout),
		Found:            summary.Found,
		Processed:        summary.Processed,
		Skipped:          summary.Skipped,
		AlreadyProcessed: summary.AlreadyProcessed,
		RemainingNew:     summary.RemainingNew,
		ReportPath:       summary.ReportPath,
	}
	for _, f := range summary.Failures {
		if f.Title != "" {
			record.FailedItems = append(record.FailedItems, f.Title)
		}
	}

	if err := a.history.Append(record); err != nil {
		return err
	}
	return a.history.Save()
}
