package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/monreader/extension/internal/cache"
	"github.com/monreader/extension/internal/memory"
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/internal/romdata"
	"github.com/monreader/extension/internal/session"
	"github.com/monreader/extension/internal/storage"
)

// StatusFileName is written to StatusDir on every sample.
const StatusFileName = "status.txt"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger    *slog.Logger
	Session   *session.Context
	Reads     func() memory.Stats
	Reference func() (romdata.LoadReport, bool)
	Pointers  func() cache.PointerStats
	Activity  func() map[string]time.Time
	Backend   storage.Backend
	StatusDir string
	Interval  time.Duration
}

// Status is one sample of the extension's state.
type Status struct {
	Time            time.Time            `json:"time"`
	SessionID       string               `json:"sessionId,omitempty"`
	Reads           memory.Stats         `json:"reads"`
	QueueLengths    map[string]int       `json:"queueLengths,omitempty"`
	LastSnapshot    map[string]time.Time `json:"lastSnapshot,omitempty"`
	Pointers        cache.PointerStats   `json:"pointerCache"`
	ReferenceLoaded bool                 `json:"referenceLoaded"`
	Fallbacks       []string             `json:"referenceFallbacks,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status collects a sample.
func (s *Service) Status() Status {
	st := Status{
		Time:      time.Now(),
		SessionID: s.deps.Session.ID(),
	}
	if s.deps.Reads != nil {
		st.Reads = s.deps.Reads()
	}
	if s.deps.Backend != nil {
		st.QueueLengths = storage.QueueLengths(s.deps.Backend)
	}
	if s.deps.Activity != nil {
		st.LastSnapshot = s.deps.Activity()
	}
	if s.deps.Pointers != nil {
		st.Pointers = s.deps.Pointers()
	}
	if s.deps.Reference != nil {
		if report, ok := s.deps.Reference(); ok {
			st.ReferenceLoaded = true
			st.Fallbacks = report.Fallbacks()
		}
	}
	return st
}

// GetProgramStatus renders a sample as status file lines and as a
// performance row.
func (s *Service) GetProgramStatus() (output []string, perf model.ReaderPerformance) {
	st := s.Status()

	queues, err := json.Marshal(st.QueueLengths)
	if err != nil {
		queues = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	perf = model.ReaderPerformance{
		Time:          st.Time,
		SessionID:     st.SessionID,
		ReadsTotal:    st.Reads.Total,
		ReadsFailed:   st.Reads.Failed,
		ReadsFallback: st.Reads.Fallback,
		QueueLengths:  datatypes.JSON(queues),
	}

	statusStr, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))
	return output, perf
}

// Sample writes one status file and records a performance row when a
// session is active.
func (s *Service) Sample(statusFile *os.File) {
	lines, perf := s.GetProgramStatus()

	if statusFile != nil {
		statusFile.Truncate(0)
		statusFile.Seek(0, 0)
		for _, line := range lines {
			statusFile.WriteString(line + "\n")
		}
	}

	if perf.SessionID == "" {
		return
	}
	if pr, ok := s.deps.Backend.(storage.PerformanceRecorder); ok {
		if err := pr.RecordPerformance(perf); err != nil {
			s.deps.Logger.Error("Error recording performance sample", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	stop, done := make(chan struct{}), make(chan struct{})
	s.stopChan, s.done = stop, done
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0o755); err != nil {
			s.deps.Logger.Error("Error creating status directory", "error", err)
		} else if f, err := os.Create(filepath.Join(s.deps.StatusDir, StatusFileName)); err != nil {
			s.deps.Logger.Error("Error creating status file", "error", err)
		} else {
			statusFile = f
		}
	}

	go func() {
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sample(statusFile)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
