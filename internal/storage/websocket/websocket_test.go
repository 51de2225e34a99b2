package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/pkg/core"
	"github.com/monreader/extension/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_session/end_session.
// When dropAfter is set the first connection is closed right after a
// message of that type (and its ack, if any).
func testServer(t *testing.T, dropAfter string) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		n := conns.Add(1)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
			if n == 1 && env.Type == dropAfter {
				return
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSession() *core.Session {
	return &core.Session{ID: "b3c1e2a0-1111-2222-3333-444455556666", Game: core.GameInfo{Code: "BPEE"}}
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t, "")
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test", ml.secret)

	var start streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, testSession().ID, start.Session.ID)
}

func TestRecord_WithoutSession(t *testing.T) {
	srv, _ := testServer(t, "")
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordCollection(&core.CollectionSnapshot{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordBattle(&core.BattleSnapshot{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordPlayer(&core.PlayerSnapshot{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t, "")
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindParty, Frame: 30, Count: 1}))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 40, InBattle: true}))
	require.NoError(t, b.RecordPlayer(&core.PlayerSnapshot{Name: "MAY"}))
	require.NoError(t, b.EndSession())

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeCollection) == 1 &&
			ml.count(streaming.TypeBattle) == 1 &&
			ml.count(streaming.TypePlayer) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ml.count(streaming.TypeStartSession))
	assert.Equal(t, 1, ml.count(streaming.TypeEndSession))

	for _, env := range ml.all() {
		if env.Type != streaming.TypeCollection {
			continue
		}
		var p streaming.CollectionPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, testSession().ID, p.SessionID)
		assert.Equal(t, uint64(30), p.Collection.Frame)
	}
}

func TestReconnect_ReplaysStartSession(t *testing.T) {
	srv, ml := testServer(t, streaming.TypeStartSession)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	b.link.backoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeStartSession) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func (m *messageLog) collections(t *testing.T) []streaming.CollectionPayload {
	t.Helper()
	var out []streaming.CollectionPayload
	for _, env := range m.all() {
		if env.Type != streaming.TypeCollection {
			continue
		}
		var p streaming.CollectionPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

func TestReconnect_ReplaysLatestState(t *testing.T) {
	srv, ml := testServer(t, streaming.TypeBattle)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	b.link.backoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindParty, Frame: 10}))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindParty, Frame: 20}))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindBox, Box: 3, Frame: 15}))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 25, InBattle: true}))

	require.Eventually(t, func() bool {
		return ml.count(streaming.TypeStartSession) == 2 && ml.count(streaming.TypeCollection) == 5
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, ml.count(streaming.TypeBattle), "battle events are not replayed")
	replayed := ml.collections(t)[3:]
	assert.Equal(t, core.KindBox, replayed[0].Collection.Kind)
	assert.Equal(t, 3, replayed[0].Collection.Box)
	assert.Equal(t, core.KindParty, replayed[1].Collection.Kind)
	assert.Equal(t, uint64(20), replayed[1].Collection.Frame)
}

func TestEndSession_ClearsReplayState(t *testing.T) {
	srv, _ := testServer(t, "")
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordPlayer(&core.PlayerSnapshot{Name: "MAY"}))
	require.Len(t, b.link.replay(), 2)

	require.NoError(t, b.EndSession())
	assert.Empty(t, b.link.replay())
}

func TestReplay_HeaderFirst(t *testing.T) {
	l := newLink(slog.New(slog.NewTextHandler(io.Discard, nil)), 8)
	l.remember("collection/party", []byte("party"))
	assert.Empty(t, l.replay(), "no header, nothing to resume")

	l.remember(streaming.TypeStartSession, []byte("start"))
	l.remember(streaming.TypePlayer, []byte("player"))
	l.remember("collection/box/1", []byte("box1"))
	l.remember("collection/party", []byte("party2"))

	got := l.replay()
	want := []string{"start", "box1", "party2", "player"}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], string(got[i]))
	}
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "collection/party", stateKey(&core.CollectionSnapshot{Kind: core.KindParty}))
	assert.Equal(t, "collection/enemy", stateKey(&core.CollectionSnapshot{Kind: core.KindEnemy}))
	assert.Equal(t, "collection/box/13", stateKey(&core.CollectionSnapshot{Kind: core.KindBox, Box: 13}))
}

func TestOutbox_EvictsOldestWhenFull(t *testing.T) {
	l := newLink(slog.New(slog.NewTextHandler(io.Discard, nil)), 3)
	for i := range 5 {
		l.enqueue([]byte{byte('a' + i)})
	}

	assert.Equal(t, uint64(2), l.outbox.Dropped())
	var got []string
	for _, m := range l.outbox.Drain() {
		got = append(got, string(m))
	}
	assert.Equal(t, []string{"c", "d", "e"}, got)
}
