package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/monreader/extension/internal/api"
	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/dispatcher"
	"github.com/monreader/extension/internal/handlers"
	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/logging"
	"github.com/monreader/extension/internal/memory"
	"github.com/monreader/extension/internal/monitor"
	intOtel "github.com/monreader/extension/internal/otel"
	"github.com/monreader/extension/internal/romdata"
	"github.com/monreader/extension/internal/session"
	"github.com/monreader/extension/internal/storage"
	"github.com/monreader/extension/internal/tracker"
	"github.com/monreader/extension/internal/worker"
	"github.com/monreader/extension/pkg/hostif"
)

const (
	frameInterval = time.Second / 60
	// retryStartFrames is how often a session start is retried while the
	// cartridge header is unreadable.
	retryStartFrames = 300
	shutdownTimeout  = 5 * time.Second
)

// app holds everything the watch command wires together.
type app struct {
	started time.Time

	logFile     *os.File
	graylog     io.Closer
	slogManager *logging.SlogManager
	logger      *slog.Logger
	otel        *intOtel.Provider

	source  io.Closer
	reader  *memory.Reader
	tracker *tracker.Tracker

	session    *session.Context
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	worker     *worker.Manager
	handlers   *handlers.Service
	monitor    *monitor.Service
}

func newApp(configDir string) (*app, error) {
	a := &app{started: time.Now(), session: session.NewContext()}

	configErr := config.Load(configDir)

	if err := a.setupLogging(); err != nil {
		return nil, err
	}
	if configErr != nil {
		a.logger.Warn("Config file not loaded, using defaults", "dir", configDir, "error", configErr)
	}

	if err := a.setupTracker(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupServices(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging() error {
	logsDir := config.GetString("logsDir")
	level := config.GetString("logLevel")

	var err error
	a.logFile, err = logging.CreateLogFile(logsDir, ExtensionName, a.started)
	if err != nil {
		return err
	}
	pruned, pruneErr := logging.PruneLogFiles(logsDir, ExtensionName, config.GetInt("logsKeep"))

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if otelCfg.Enabled {
		otelWriter = a.logFile
	}
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: CurrentExtensionVersion,
		SourceKind:     config.GetSourceConfig().Kind,
		BatchTimeout:   otelCfg.BatchTimeout,
		MetricInterval: otelCfg.MetricInterval,
		Writer:         otelWriter,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setting up otel: %w", err)
	}

	opts := []logging.Option{
		logging.WithContext(logging.SessionAttrs(a.session.ID, hostif.Frames)),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			a.graylog = w
			opts = append(opts, logging.WithGraylog(w))
		}
	}

	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(io.MultiWriter(os.Stdout, a.logFile), level, a.otel.LoggerProvider(), opts...)
	a.logger = a.slogManager.Logger()
	if len(pruned) > 0 || pruneErr != nil {
		a.logger.Info("Old log files pruned", "count", len(pruned), "error", pruneErr)
	}
	return nil
}

func (a *app) setupTracker() error {
	src := config.GetSourceConfig()
	bus, closer, err := openSource(src)
	if err != nil {
		return err
	}
	a.source = closer
	a.logger.Info("Memory source opened", "kind", src.Kind, "address", src.Address)

	a.reader, err = memory.NewReader(bus, memory.DefaultRegions(src.EWRAMWindow), a.logger)
	if err != nil {
		return fmt.Errorf("creating memory reader: %w", err)
	}

	table := layout.Emerald()
	overrides, err := config.GetAddressOverrides()
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		if table, err = table.Apply(overrides); err != nil {
			return fmt.Errorf("applying address overrides: %w", err)
		}
		a.logger.Info("Address overrides applied", "count", len(overrides))
	}

	sched := config.GetScheduleConfig()
	ref := romdata.New(a.reader, table, a.logger)
	a.tracker, err = tracker.New(a.reader, ref, table, tracker.Config{
		PointerTTL: sched.PointerTTL,
		Strict:     sched.Strict,
		Rate:       sched.Rate,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	return nil
}

func (a *app) setupServices() error {
	var err error
	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	a.backend, err = storage.NewBackend(storageCfg, storage.Dependencies{
		Logger:  a.logger,
		DBLog:   logging.NewZerolog(a.logFile, config.GetString("logLevel")),
		Version: CurrentExtensionVersion,
		Started: a.started,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.logger.Info("Storage backend initialized", "types", storageCfg.Types())

	a.worker = worker.NewManager(worker.Dependencies{
		Logger:  a.logger,
		Session: a.session,
	}, a.backend)
	a.worker.RegisterHandlers(a.dispatcher)

	a.monitor = monitor.NewService(monitor.Dependencies{
		Logger:    a.logger,
		Session:   a.session,
		Reads:     a.reader.Stats,
		Reference: a.tracker.Reference().Loaded,
		Pointers:  a.tracker.PointerStats,
		Activity:  a.worker.LastSnapshots,
		Backend:   a.backend,
		StatusDir: config.GetString("logsDir"),
		Interval:  time.Second,
	})

	deps := handlers.Dependencies{
		Logger:        a.logger,
		LogManager:    a.slogManager,
		Tracker:       a.tracker,
		Session:       a.session,
		Monitor:       a.monitor,
		Queue:         a.dispatcher,
		Telemetry:     a.otel,
		ExtensionName: ExtensionName,
		Version:       CurrentExtensionVersion,
		BuildDate:     BuildDate,
	}
	if up := config.GetUploadConfig(); up.Enabled {
		client := api.New(up.ServerURL, up.APIKey)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Healthcheck(ctx)
		cancel()
		if err != nil {
			a.logger.Info("Recording server is offline", "url", up.ServerURL, "error", err)
		} else {
			a.logger.Info("Recording server is online", "url", up.ServerURL)
		}
		deps.Uploader = client
	}
	a.handlers = handlers.NewService(deps)
	a.handlers.SetBackend(a.backend)
	a.handlers.RegisterHandlers(a.dispatcher)

	loop := tracker.NewLoop(a.tracker, a.dispatcher, scheduleFromConfig(config.GetScheduleConfig()), a.logger)
	hostif.SetVersion(CurrentExtensionVersion)
	hostif.SetDispatcher(a.dispatcher)
	hostif.SetTicker(loop)

	a.logger.Info("Dispatcher initialized", "commands", a.dispatcher.Commands())
	return a.monitor.Start()
}

func scheduleFromConfig(c config.ScheduleConfig) tracker.Schedule {
	return tracker.Schedule{
		Update:      c.Update,
		FullUpdate:  c.FullUpdate,
		BattleCheck: c.BattleCheck,
		Boxes:       c.Boxes,
	}
}

// Run drives the tracker at 60 Hz until ctx is cancelled, then ends the
// session.
func (a *app) Run(ctx context.Context) error {
	a.logger.Info("Starting up...", "version", CurrentExtensionVersion, "build", BuildDate)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	a.startSession()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Shutting down")
			if a.session.ID() != "" {
				a.logger.Info("Session end", "response", hostif.Call(handlers.CmdSessionEnd))
			}
			return nil
		case <-ticker.C:
			frame := hostif.Frame()
			if a.session.ID() == "" && frame%retryStartFrames == 0 {
				a.startSession()
			}
		}
	}
}

func (a *app) startSession() {
	resp := hostif.Call(handlers.CmdSessionStart)
	if a.session.ID() == "" {
		a.logger.Debug("Session not started yet", "response", resp)
		return
	}
	a.logger.Info("Session start", "response", resp)
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Error closing storage backend", "error", err)
		}
		if paths := storage.ExportedFilePaths(a.backend); len(paths) > 0 {
			a.logger.Info("Recordings written", "paths", paths)
		}
	}
	if a.source != nil {
		a.source.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.slogManager != nil {
		if err := a.slogManager.Flush(ctx); err != nil {
			a.logger.Warn("Failed to flush OTel data", "error", err)
		}
	}
	if a.otel != nil {
		a.otel.Shutdown(ctx)
	}
	if a.graylog != nil {
		a.graylog.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// openSource connects to the configured memory source.
func openSource(cfg config.SourceConfig) (memory.Bus, io.Closer, error) {
	switch cfg.Kind {
	case config.SourceImage:
		img, err := memory.LoadImageFiles(cfg.IWRAM, cfg.EWRAM, cfg.ROM)
		if err != nil {
			return nil, nil, err
		}
		return img, nil, nil
	case config.SourceRetroArch, "":
		ra, err := memory.DialRetroArch(memory.RetroArchConfig{
			Address:   cfg.Address,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			Burst:     cfg.Burst,
		})
		if err != nil {
			return nil, nil, err
		}
		return ra, ra, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
