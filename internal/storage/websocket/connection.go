package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/monreader/extension/internal/queue"
	"github.com/monreader/extension/pkg/streaming"
)

const (
	outboxSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// link is the socket to the relay. One goroutine writes; reconnects replay
// the session header and the latest state so a viewer resumes mid-session.
type link struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	resume map[string][]byte // latest message per state key

	outbox *queue.Queue[[]byte]
	wake   chan struct{}
	acks   chan streaming.AckMessage
	done   chan struct{}

	rawURL string
	secret string

	backoff    time.Duration
	pingPeriod time.Duration

	logger *slog.Logger
}

func newLink(logger *slog.Logger, size int) *link {
	return &link{
		resume:     make(map[string][]byte),
		outbox:     queue.NewBounded[[]byte](size),
		wake:       make(chan struct{}, 1),
		acks:       make(chan streaming.AckMessage, ackChSize),
		done:       make(chan struct{}),
		backoff:    time.Second,
		pingPeriod: pingPeriod,
		logger:     logger,
	}
}

// open dials the relay and starts the read and write loops.
func (l *link) open(rawURL, secret string) error {
	l.rawURL, l.secret = rawURL, secret

	conn, err := l.dial()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	l.start(conn)
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	u, err := url.Parse(l.rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", l.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (l *link) start(conn *ws.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go l.writeLoop(conn)
	go l.readLoop(conn)
}

// enqueue hands data to the write loop. When the outbox is full the oldest
// message is evicted.
func (l *link) enqueue(data []byte) {
	l.outbox.Push(data)
	l.nudge()
}

func (l *link) nudge() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// remember records data as the latest message for key.
func (l *link) remember(key string, data []byte) {
	l.mu.Lock()
	l.resume[key] = data
	l.mu.Unlock()
}

// sendLatest enqueues state that supersedes earlier messages with the same key.
func (l *link) sendLatest(key string, data []byte) {
	l.remember(key, data)
	l.enqueue(data)
}

// forget clears the replay state at session end.
func (l *link) forget() {
	l.mu.Lock()
	clear(l.resume)
	l.mu.Unlock()
}

// replay returns the messages a new connection needs: the session header
// first, then the state keys in order.
func (l *link) replay() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	start, ok := l.resume[streaming.TypeStartSession]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(l.resume))
	for k := range l.resume {
		if k != streaming.TypeStartSession {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := [][]byte{start}
	for _, k := range keys {
		out = append(out, l.resume[k])
	}
	return out
}

func (l *link) writeLoop(own *ws.Conn) {
	ticker := time.NewTicker(l.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if err := own.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				l.logger.Warn("WebSocket ping failed", "error", err)
				go l.reconnect(own)
				return
			}
		case <-l.wake:
			if !l.current(own) {
				l.nudge()
				return
			}
			batch := l.outbox.Drain()
			for i, data := range batch {
				if err := l.write(own, data); err != nil {
					l.logger.Warn("WebSocket write error", "error", err)
					l.outbox.Requeue(batch[i:])
					go l.reconnect(own)
					return
				}
			}
		}
	}
}

func (l *link) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop routes acks to waiters. Anything else from the relay is ignored.
func (l *link) readLoop(own *ws.Conn) {
	for {
		_, message, err := own.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			if !l.current(own) {
				return
			}
			l.logger.Warn("WebSocket read error", "error", err)
			go l.reconnect(own)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

func (l *link) current(conn *ws.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn == conn
}

// reconnect replaces failed with a fresh connection, backing off
// exponentially, and replays the session state on it before resuming.
func (l *link) reconnect(failed *ws.Conn) {
	l.mu.Lock()
	if l.closed || l.conn != failed {
		l.mu.Unlock()
		return
	}
	_ = l.conn.Close()
	l.conn = nil
	l.mu.Unlock()

	backoff := l.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-l.done:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := l.dial()
		if err != nil {
			l.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}
		replayed, err := l.replayOn(conn)
		if err != nil {
			l.logger.Warn("Failed to replay session state", "attempt", attempt, "error", err)
			_ = conn.Close()
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		l.conn = conn
		l.mu.Unlock()

		l.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", replayed)
		l.start(conn)
		l.nudge()
		return
	}

	l.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (l *link) replayOn(conn *ws.Conn) (int, error) {
	msgs := l.replay()
	for _, data := range msgs {
		if err := l.write(conn, data); err != nil {
			return 0, err
		}
	}
	return len(msgs), nil
}

// sendAndWait enqueues data and blocks until the relay acks ackFor.
func (l *link) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	l.enqueue(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops both loops.
func (l *link) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}
