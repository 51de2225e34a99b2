package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Event is a control command from the host or a snapshot from the tracker.
// Host commands carry Args; tracker snapshots carry a typed Payload.
type Event struct {
	Command   string
	Args      []string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Overflow is what a full queue does with an incoming event.
type Overflow int

const (
	// RejectNew drops the incoming event and returns an error.
	RejectNew Overflow = iota
	// EvictOldest drops the oldest queued event to make room.
	EvictOldest
	// Wait blocks the caller until there is room.
	Wait
)

// Option configures handler registration.
type Option func(*registration)

type registration struct {
	queue    int
	overflow Overflow
	logged   bool
}

// Buffered runs the handler on its own goroutine behind a queue of size
// events.
func Buffered(size int) Option {
	return func(r *registration) { r.queue = size }
}

// Blocking makes a full queue block the caller.
func Blocking() Option {
	return func(r *registration) { r.overflow = Wait }
}

// Latest makes a full queue evict its oldest event, so the newest
// snapshot of a slot always gets through.
func Latest() Option {
	return func(r *registration) { r.overflow = EvictOldest }
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(r *registration) { r.logged = true }
}

// lane is the queue and goroutine behind one buffered command.
type lane struct {
	command  string
	events   chan Event
	overflow Overflow
	// accepted but not yet handled, including the one in flight
	pending atomic.Int64
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics *metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	lanes    map[string]*lane
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is
// a no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		lanes:    make(map[string]*lane),
	}
	m, err := newMetrics(d.QueueLengths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}

	handler := h
	if reg.queue > 0 {
		handler = d.startLane(command, reg, handler)
	}
	if reg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}

// QueueLengths reports how many events wait in each buffered command's queue.
func (d *Dispatcher) QueueLengths() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.lanes))
	for cmd, l := range d.lanes {
		out[cmd] = len(l.events)
	}
	return out
}

// Pending counts buffered events that were accepted but not yet handled.
func (d *Dispatcher) Pending() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var n int64
	for _, l := range d.lanes {
		n += l.pending.Load()
	}
	return n
}

const drainPoll = 2 * time.Millisecond

// Drain waits until every buffered event accepted so far has been handled,
// or ctx ends. Unlike Close the dispatcher keeps running.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if d.Pending() == 0 {
		return nil
	}
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("draining %d events: %w", d.Pending(), ctx.Err())
		case <-ticker.C:
			if d.Pending() == 0 {
				return nil
			}
		}
	}
}

// Close stops accepting buffered events and waits until every queued event
// has been handled. Register must not be called after Close.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l.events)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) startLane(command string, reg registration, h HandlerFunc) HandlerFunc {
	l := &lane{
		command:  command,
		events:   make(chan Event, reg.queue),
		overflow: reg.overflow,
	}
	d.mu.Lock()
	d.lanes[command] = l
	d.mu.Unlock()

	d.wg.Add(1)
	go d.drainLane(l, h)

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, fmt.Errorf("dispatcher closed: %s", command)
		}
		if err := d.enqueue(l, e); err != nil {
			return nil, err
		}
		return "queued", nil
	}
}

func (d *Dispatcher) drainLane(l *lane, h HandlerFunc) {
	defer d.wg.Done()
	for e := range l.events {
		if _, err := h(e); err != nil {
			d.logger.Error("buffered event failed", "command", l.command, "error", err)
		}
		l.pending.Add(-1)
		d.metrics.handled(l.command)
	}
}

// enqueue applies the lane's overflow policy. The caller holds d.mu for
// reading, so the channel cannot be closed underneath it.
func (d *Dispatcher) enqueue(l *lane, e Event) error {
	l.pending.Add(1)
	switch l.overflow {
	case Wait:
		l.events <- e
		return nil
	case EvictOldest:
		for {
			select {
			case l.events <- e:
				return nil
			default:
			}
			select {
			case <-l.events:
				l.pending.Add(-1)
				d.metrics.dropped(l.command)
			default:
			}
		}
	default:
		select {
		case l.events <- e:
			return nil
		default:
			l.pending.Add(-1)
			d.metrics.dropped(l.command)
			return fmt.Errorf("queue full: %s", l.command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args), "payload", e.Payload != nil)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
