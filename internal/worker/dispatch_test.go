package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/monreader/extension/internal/dispatcher"
	"github.com/monreader/extension/internal/session"
	"github.com/monreader/extension/internal/tracker"
	"github.com/monreader/extension/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	collections []*core.CollectionSnapshot
	battles     []*core.BattleSnapshot
	players     []*core.PlayerSnapshot
	fail        error
}

func (b *mockBackend) Init() error                      { return nil }
func (b *mockBackend) Close() error                     { return nil }
func (b *mockBackend) StartSession(*core.Session) error { return nil }
func (b *mockBackend) EndSession() error                { return nil }

func (b *mockBackend) RecordCollection(c *core.CollectionSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.collections = append(b.collections, c)
	return nil
}

func (b *mockBackend) RecordBattle(e *core.BattleSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.battles = append(b.battles, e)
	return nil
}

func (b *mockBackend) RecordPlayer(p *core.PlayerSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.players = append(b.players, p)
	return nil
}

func (b *mockBackend) counts() (int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.collections), len(b.battles), len(b.players)
}

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}

	d, err := dispatcher.New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

// newActiveManager returns a manager with a started session.
func newActiveManager(backend *mockBackend) *Manager {
	sess := session.NewContext()
	sess.Start(core.GameInfo{Code: "BPEE"}, "test")
	return NewManager(Dependencies{Session: sess}, backend)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRegisterHandlers_RegistersAllCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	manager := NewManager(Dependencies{}, nil)
	manager.RegisterHandlers(d)

	expectedCommands := []string{
		tracker.CmdParty,
		tracker.CmdEnemy,
		tracker.CmdBox,
		tracker.CmdBattle,
		tracker.CmdPlayer,
	}

	for _, cmd := range expectedCommands {
		if !d.HasHandler(cmd) {
			t.Errorf("expected handler for %s to be registered", cmd)
		}
	}
}

func TestHandler_NoSession_Discards(t *testing.T) {
	backend := &mockBackend{}
	manager := NewManager(Dependencies{}, backend)

	h := manager.handleCollection(tracker.CmdParty)
	result, err := h(dispatcher.Event{Command: tracker.CmdParty, Payload: &core.CollectionSnapshot{}})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}
	if n, _, _ := backend.counts(); n != 0 {
		t.Errorf("expected nothing stored outside a session, got %d", n)
	}
}

func TestHandler_NoBackend_Discards(t *testing.T) {
	sess := session.NewContext()
	sess.Start(core.GameInfo{}, "test")
	manager := NewManager(Dependencies{Session: sess}, nil)

	if _, err := manager.handleBattle(dispatcher.Event{Payload: &core.BattleSnapshot{}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHandler_WrongPayload(t *testing.T) {
	manager := newActiveManager(&mockBackend{})

	_, err := manager.handlePlayer(dispatcher.Event{Payload: &core.BattleSnapshot{}})
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Errorf("expected ErrUnexpectedPayload, got %v", err)
	}
	_, err = manager.handleBattle(dispatcher.Event{Payload: (*core.BattleSnapshot)(nil)})
	if !errors.Is(err, ErrUnexpectedPayload) {
		t.Errorf("expected ErrUnexpectedPayload for nil, got %v", err)
	}
}

func TestHandler_BackendError(t *testing.T) {
	backend := &mockBackend{fail: errors.New("disk full")}
	manager := newActiveManager(backend)

	h := manager.handleCollection(tracker.CmdBox)
	if _, err := h(dispatcher.Event{Payload: &core.CollectionSnapshot{Kind: core.KindBox}}); err == nil {
		t.Error("expected backend error")
	}
	if _, ok := manager.LastSnapshots()[tracker.CmdBox]; ok {
		t.Error("failed store should not update last snapshot time")
	}
}

func TestDispatch_StoresSnapshots(t *testing.T) {
	d, _ := newTestDispatcher(t)
	backend := &mockBackend{}
	manager := newActiveManager(backend)
	manager.RegisterHandlers(d)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []dispatcher.Event{
		{Command: tracker.CmdParty, Payload: &core.CollectionSnapshot{Kind: core.KindParty, Time: at}},
		{Command: tracker.CmdEnemy, Payload: &core.CollectionSnapshot{Kind: core.KindEnemy, Time: at}},
		{Command: tracker.CmdBox, Payload: &core.CollectionSnapshot{Kind: core.KindBox, Box: 2, Time: at}},
		{Command: tracker.CmdBattle, Payload: &core.BattleSnapshot{InBattle: true, Time: at}},
		{Command: tracker.CmdPlayer, Payload: &core.PlayerSnapshot{Name: "MAY", Time: at}},
	}
	for _, e := range events {
		result, err := d.Dispatch(e)
		if err != nil {
			t.Fatalf("dispatch %s: %v", e.Command, err)
		}
		if result != "queued" {
			t.Errorf("expected queued for %s, got %v", e.Command, result)
		}
	}

	waitFor(t, func() bool {
		c, b, p := backend.counts()
		return c == 3 && b == 1 && p == 1
	})

	last := manager.LastSnapshots()
	for _, e := range events {
		if !last[e.Command].Equal(at) {
			t.Errorf("last snapshot for %s = %v, want %v", e.Command, last[e.Command], at)
		}
	}
	if manager.Counts()[tracker.CmdBox] != 1 {
		t.Errorf("expected one box stored, got %d", manager.Counts()[tracker.CmdBox])
	}
}

func TestSetBackend(t *testing.T) {
	manager := NewManager(Dependencies{}, nil)
	if manager.getBackend() != nil {
		t.Error("expected no backend initially")
	}

	backend := &mockBackend{}
	manager.SetBackend(backend)

	if manager.getBackend() != backend {
		t.Error("expected backend to be set")
	}
}
