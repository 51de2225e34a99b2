package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/monreader/extension/internal/api"
	"github.com/monreader/extension/internal/dispatcher"
	"github.com/monreader/extension/internal/logging"
	"github.com/monreader/extension/internal/monitor"
	"github.com/monreader/extension/internal/session"
	"github.com/monreader/extension/internal/storage"
	"github.com/monreader/extension/internal/util"
	"github.com/monreader/extension/pkg/core"
)

// Control commands.
const (
	CmdVersion         = ":VERSION:"
	CmdStatus          = ":STATUS:"
	CmdReload          = ":RELOAD:"
	CmdAddressOverride = ":ADDRESS:OVERRIDE:"
	CmdSessionStart    = ":SESSION:START:"
	CmdSessionEnd      = ":SESSION:END:"
	CmdLog             = ":LOG:"
	CmdLogLevel        = ":LOG:LEVEL:"
)

var (
	// ErrNoGame is returned when a session is started before the cartridge
	// header can be read.
	ErrNoGame = errors.New("cartridge header unreadable")
	// ErrNoSession is returned by :SESSION:END: outside a session.
	ErrNoSession = errors.New("no active session")
	// ErrNotReady is returned when a command needs a dependency that was
	// not wired.
	ErrNotReady = errors.New("not ready")
)

// Tracker is the part of the tracker driven by control commands.
type Tracker interface {
	Game() (core.GameInfo, bool)
	ResetPointers()
	ApplyOverride(overrides map[string]uint32) error
}

// Queue holds snapshots that were emitted but not yet stored.
// *dispatcher.Dispatcher satisfies it.
type Queue interface {
	Drain(ctx context.Context) error
}

// Telemetry exports pending log records and metric values.
// *otel.Provider satisfies it.
type Telemetry interface {
	Flush(ctx context.Context) error
}

const (
	// drainTimeout bounds how long a session end waits for queued snapshots.
	drainTimeout = 2 * time.Second
	// uploadTimeout bounds one export upload including its retries.
	uploadTimeout = 2 * time.Minute
)

// Uploader sends exported session files to a recording server.
// *api.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta api.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	LogManager    *logging.SlogManager
	Tracker       Tracker
	Session       *session.Context
	Monitor       *monitor.Service
	Queue         Queue
	Telemetry     Telemetry
	Uploader      Uploader
	ExtensionName string
	Version       string
	BuildDate     string
}

// Service handles the control commands.
type Service struct {
	deps         Dependencies
	writeLogFunc func(source, data, level string)

	mu      sync.RWMutex
	backend storage.Backend
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	s := &Service{deps: deps}
	s.writeLogFunc = func(source, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(source, data, level)
			return
		}
		deps.Logger.Info(data, "source", source, "level", level)
	}
	return s
}

// Session returns the session context shared with the worker.
func (s *Service) Session() *session.Context {
	return s.deps.Session
}

// SetBackend sets the storage backend for session start/end handling
func (s *Service) SetBackend(b storage.Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = b
}

func (s *Service) getBackend() storage.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func (s *Service) writeLog(source, data, level string) {
	s.writeLogFunc(source, data, level)
}

// RegisterHandlers registers the control commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Simple queries - sync return is sufficient
	d.Register(CmdVersion, s.handleVersion)
	d.Register(CmdStatus, s.handleStatus)

	// State changes
	d.Register(CmdReload, s.handleReload, dispatcher.Logged())
	d.Register(CmdAddressOverride, s.handleAddressOverride, dispatcher.Logged())
	d.Register(CmdSessionStart, s.handleSessionStart, dispatcher.Logged())
	d.Register(CmdSessionEnd, s.handleSessionEnd, dispatcher.Logged())
	d.Register(CmdLog, s.handleLog)
	d.Register(CmdLogLevel, s.handleLogLevel, dispatcher.Logged())
}

func (s *Service) handleVersion(dispatcher.Event) (any, error) {
	return []string{s.deps.Version, s.deps.BuildDate}, nil
}

func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	if s.deps.Monitor == nil {
		return nil, fmt.Errorf("%s: %w: monitor", CmdStatus, ErrNotReady)
	}
	return s.deps.Monitor.Status(), nil
}

func (s *Service) handleReload(dispatcher.Event) (any, error) {
	if s.deps.Tracker == nil {
		return nil, fmt.Errorf("%s: %w: tracker", CmdReload, ErrNotReady)
	}
	s.deps.Tracker.ResetPointers()
	s.writeLog(CmdReload, "Pointer cache cleared", "INFO")
	return "ok", nil
}

// handleAddressOverride applies key=address pairs, e.g.
// ["partyCount=0x020244E9", "partyBase=0x020244EC"]. It returns the keys
// that were applied.
func (s *Service) handleAddressOverride(e dispatcher.Event) (any, error) {
	if s.deps.Tracker == nil {
		return nil, fmt.Errorf("%s: %w: tracker", CmdAddressOverride, ErrNotReady)
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = util.TrimQuotes(a)
	}
	overrides, err := util.ParseAddressMap(strings.Join(args, " "))
	if err != nil {
		s.writeLog(CmdAddressOverride, fmt.Sprintf("Error parsing overrides: %v", err), "ERROR")
		return nil, err
	}
	if err := s.deps.Tracker.ApplyOverride(overrides); err != nil {
		s.writeLog(CmdAddressOverride, fmt.Sprintf("Override rejected: %v", err), "WARN")
		return nil, err
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	s.writeLog(CmdAddressOverride, fmt.Sprintf("Applied overrides: %s", strings.Join(keys, ",")), "INFO")
	return keys, nil
}

// handleSessionStart identifies the cartridge and starts a session. A
// session that is still open is ended first. It returns the new session id.
func (s *Service) handleSessionStart(dispatcher.Event) (any, error) {
	if s.deps.Tracker == nil {
		return nil, fmt.Errorf("%s: %w: tracker", CmdSessionStart, ErrNotReady)
	}
	game, ok := s.deps.Tracker.Game()
	if !ok {
		s.writeLog(CmdSessionStart, ErrNoGame.Error(), "ERROR")
		return nil, ErrNoGame
	}

	if prev := s.deps.Session.ID(); prev != "" {
		s.writeLog(CmdSessionStart, fmt.Sprintf("Ending open session %s", prev), "WARN")
		if _, err := s.endSession(); err != nil {
			s.writeLog(CmdSessionStart, fmt.Sprintf("Error ending open session: %v", err), "ERROR")
		}
	}

	sess := s.deps.Session.Start(game, s.deps.Version)
	if b := s.getBackend(); b != nil {
		if err := b.StartSession(sess); err != nil {
			s.deps.Session.End()
			s.writeLog(CmdSessionStart, fmt.Sprintf("Error starting session in storage backend: %v", err), "ERROR")
			return nil, err
		}
	}

	s.deps.Logger.Info("Session started",
		"sessionId", sess.ID,
		"game", game.Code,
		"title", game.Title,
		"patch", game.Patch)
	return sess.ID, nil
}

// handleSessionEnd ends the session and returns the paths of any files the
// backend exported.
func (s *Service) handleSessionEnd(dispatcher.Event) (any, error) {
	return s.endSession()
}

func (s *Service) endSession() ([]string, error) {
	current, ok := s.deps.Session.Current()
	if !ok {
		return nil, ErrNoSession
	}

	// Snapshots still queued belong to this session.
	if s.deps.Queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := s.deps.Queue.Drain(ctx); err != nil {
			s.writeLog(CmdSessionEnd, fmt.Sprintf("Snapshots left in queue: %v", err), "WARN")
		}
		cancel()
	}

	var err error
	b := s.getBackend()
	if b != nil {
		if err = b.EndSession(); err != nil {
			s.writeLog(CmdSessionEnd, fmt.Sprintf("Error ending session in storage backend: %v", err), "ERROR")
		}
	}
	s.deps.Session.End()

	var paths []string
	if b != nil {
		paths = storage.ExportedFilePaths(b)
	}
	s.deps.Logger.Info("Session ended", "sessionId", current.ID, "exported", paths)
	s.upload(current, paths)

	if s.deps.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if ferr := s.deps.Telemetry.Flush(ctx); ferr != nil {
			s.writeLog(CmdSessionEnd, fmt.Sprintf("Error flushing telemetry: %v", ferr), "WARN")
		}
		cancel()
	}
	return paths, err
}

// upload sends each exported file to the recording server. Failures are
// logged; the files stay on disk.
func (s *Service) upload(sess *core.Session, paths []string) {
	if s.deps.Uploader == nil {
		return
	}
	meta := api.UploadMetadata{
		SessionID: sess.ID,
		GameCode:  sess.Game.Code,
		Title:     sess.Game.Title,
		Patch:     sess.Game.Patch,
		Duration:  time.Since(sess.Started),
	}
	for _, p := range paths {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		err := s.deps.Uploader.Upload(ctx, p, meta)
		cancel()
		if err != nil {
			s.writeLog(CmdSessionEnd, fmt.Sprintf("Error uploading %s: %v", p, err), "ERROR")
			continue
		}
		s.deps.Logger.Info("Recording uploaded", "path", p)
	}
}

// handleLog writes a host log line. Args: source, level, message...
func (s *Service) handleLog(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("%s: expected source, level and message, got %d args", CmdLog, len(e.Args))
	}
	source := util.TrimQuotes(e.Args[0])
	level := strings.ToUpper(util.TrimQuotes(e.Args[1]))
	parts := make([]string, 0, len(e.Args)-2)
	for _, a := range e.Args[2:] {
		parts = append(parts, util.TrimQuotes(a))
	}
	s.writeLog(source, strings.Join(parts, " "), level)
	return nil, nil
}

// handleLogLevel changes the log level of every sink. Args: level. Returns
// the level now in effect.
func (s *Service) handleLogLevel(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("%s: expected level, got %d args", CmdLogLevel, len(e.Args))
	}
	lvl, err := s.deps.LogManager.SetLevel(util.TrimQuotes(e.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CmdLogLevel, err)
	}
	return lvl.String(), nil
}
