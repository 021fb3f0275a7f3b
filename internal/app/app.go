// Package app is the process context: it owns configuration, the store,
// the credential ring and the delivery stack, and hands them to commands.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/po-intake/internal/credential"
	"github.com/nhle/po-intake/internal/intake"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/store"
	posync "github.com/nhle/po-intake/internal/sync"
	"github.com/nhle/po-intake/internal/theme"
)

// Options control Init.
type Options struct {
	// ConfigPath defaults to ~/.config/pointake/config.yaml.
	ConfigPath string

	// Verbose forces debug logging.
	Verbose bool

	// LogFormat overrides log.format ("text" or "json").
	LogFormat string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Ring replaces the OS keyring.
	Ring *credential.Ring

	// Notifier receives user-facing outcomes. Defaults to logging them.
	Notifier model.Notifier

	// Now replaces the wall clock.
	Now func() time.Time
}

// App holds every long-lived collaborator of the process.
type App struct {
	ConfigPath string
	Config     *model.AppConfig
	Logger     *slog.Logger

	Store     *store.SQLiteStore
	Ring      *credential.Ring
	Client    *remote.Client
	Resilient *remote.Resilient
	Monitor   *posync.Monitor
	Engine    *posync.Engine
	Intake    *intake.Service
}

// Init loads configuration and wires the application. The caller must
// call Shutdown.
func Init(opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = model.DefaultConfigPath()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfg, err := model.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	logger := NewLogger(cfg.Log, opts.Verbose, opts.LogOutput)
	theme.SetDarkMode(cfg.Display.DarkMode)

	ring := opts.Ring
	if ring == nil {
		ring, err = credential.Open(filepath.Dir(opts.ConfigPath))
		if err != nil {
			return nil, err
		}
	}

	// An API key from the environment wins over the keyring.
	if cfg.Remote.APIKey == "" {
		key, err := ring.APIKey()
		if err != nil {
			logger.Warn("reading API key from keyring", "error", err)
		}
		cfg.Remote.APIKey = key
	}

	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Storage.DBPath,
		store.WithClock(opts.Now),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	auth := model.StaticAuth{User: &cfg.User}

	client := remote.NewClient(model.DefaultRemote().Overlay(model.RemotePatch{
		Endpoint: &cfg.Remote.Endpoint,
		APIKey:   &cfg.Remote.APIKey,
	}),
		remote.WithTimeout(cfg.Sync.Timeout),
		remote.WithLogger(logger),
		remote.WithClock(opts.Now),
	)

	resilient := remote.NewResilient(client, st,
		remote.WithRetry(cfg.Sync.RetryAttempts, cfg.Sync.RetryDelay),
		remote.WithAuth(auth),
		remote.WithResilientLogger(logger),
	)
	resilient.SetEnabled(cfg.Sync.Enabled)

	monitor := posync.NewMonitor(
		func() string { return client.Config().Endpoint },
		posync.WithProbeInterval(cfg.Sync.ProbeInterval),
		posync.WithMonitorLogger(logger),
	)

	engine := posync.New(st, client,
		posync.WithOnline(monitor.Online),
		posync.WithEnabled(resilient.Enabled),
		posync.WithReplayer(resilient, cfg.Sync.RetryAttempts),
		posync.WithInterval(cfg.Sync.Interval),
		posync.WithLogger(logger),
	)
	monitor.OnOnline(func() { engine.Trigger(posync.TriggerOnline) })
	engine.Subscribe(func(r posync.PassReport) {
		if r.Skipped == "" && r.Attempted > 0 {
			logger.Info("sync pass finished",
				"trigger", r.Trigger,
				"sent", r.Sent,
				"failed", r.Failed,
				"took", r.Finished.Sub(r.Started),
			)
		}
	})

	notifier := opts.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}

	svc := intake.New(st, resilient, engine,
		intake.WithAuth(auth),
		intake.WithNotifier(notifier),
		intake.WithClock(opts.Now),
		intake.WithLogger(logger),
	)

	return &App{
		ConfigPath: opts.ConfigPath,
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Ring:       ring,
		Client:     client,
		Resilient:  resilient,
		Monitor:    monitor,
		Engine:     engine,
		Intake:     svc,
	}, nil
}

// Shutdown stops the engine and closes the store.
func (a *App) Shutdown() error {
	a.Engine.Stop()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) ShowSuccess(title, message string) {
	n.logger.Info(title, "detail", message)
}

func (n logNotifier) ShowError(title, message string) {
	n.logger.Error(title, "detail", message)
}
