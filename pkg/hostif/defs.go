package hostif

import (
	"sync"
	"sync/atomic"

	"github.com/monreader/extension/internal/dispatcher"
)

// Ticker is advanced once per host frame.
type Ticker interface {
	Tick()
}

// configStruct is the central configuration used by this library
type configStruct struct {
	mu sync.RWMutex

	// version is returned by Version before any dispatcher is set
	version string

	// dispatcher handles command routing
	dispatcher *dispatcher.Dispatcher

	// ticker is driven by Frame
	ticker Ticker

	frames atomic.Uint64
}

// Init method initializes the config struct
func (c *configStruct) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = "No version set"
	c.dispatcher = nil
	c.ticker = nil
	c.frames.Store(0)
}

// SetVersion sets the version string reported to the host
func SetVersion(version string) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.version = version
}

// Version returns the version string reported to the host
func Version() string {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.version
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.dispatcher
}

// SetTicker sets what Frame advances
func SetTicker(t Ticker) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.ticker = t
}

func getTicker() Ticker {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	return Config.ticker
}
