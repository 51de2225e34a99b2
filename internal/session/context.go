// Package session tracks the recording run the extension is currently in.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monreader/extension/pkg/core"
)

// Context holds the current session. A zero Context has no session.
type Context struct {
	mu      sync.RWMutex
	current *core.Session
}

// NewContext creates a Context with no active session.
func NewContext() *Context {
	return &Context{}
}

// Start begins a new session for game and returns it. Any previous session
// is replaced.
func (c *Context) Start(game core.GameInfo, version string) *core.Session {
	s := &core.Session{
		ID:      uuid.NewString(),
		Started: time.Now().UTC(),
		Game:    game,
		Version: version,
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return s
}

// End clears the session and returns the one that was active.
func (c *Context) End() (*core.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current
	c.current = nil
	return s, s != nil
}

// Current returns the active session.
func (c *Context) Current() (*core.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current != nil
}

// ID returns the active session id, or "" outside a session.
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.ID
}
