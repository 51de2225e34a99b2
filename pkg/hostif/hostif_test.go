package hostif

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/dispatcher"
	"github.com/monreader/extension/internal/logging"
)

func TestFormatDispatchResponse(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		result   any
		err      error
		expected string
	}{
		{
			name:     "success with string array (VERSION)",
			command:  ":VERSION:",
			result:   []string{"0.0.1", "2026-02-01"},
			expected: `["ok", ["0.0.1","2026-02-01"]]`,
		},
		{
			name:     "success with simple string",
			command:  ":RELOAD:",
			result:   "ok",
			expected: `["ok", "ok"]`,
		},
		{
			name:     "success with session id",
			command:  ":SESSION:START:",
			result:   "9b2f0c4e-1f0a-4c55-8a4b-2a8b1f6c0d11",
			expected: `["ok", "9b2f0c4e-1f0a-4c55-8a4b-2a8b1f6c0d11"]`,
		},
		{
			name:     "success with nil result",
			command:  ":LOG:",
			expected: `["ok"]`,
		},
		{
			name:     "error response",
			command:  ":SESSION:END:",
			err:      errors.New("no active session"),
			expected: `["error", "no active session"]`,
		},
		{
			name:     "error with quoted text",
			command:  ":STATUS:",
			err:      errors.New(`malformed response "GET_STATUS PAUSED"`),
			expected: `["error", "malformed response \"GET_STATUS PAUSED\""]`,
		},
		{
			name:     "string result with quotes",
			command:  ":RELOAD:",
			result:   `say "hi"`,
			expected: `["ok", "say \"hi\""]`,
		},
		{
			name:     "success with map",
			command:  ":STATUS:",
			result:   map[string]int{"collections": 42},
			expected: `["ok", {"collections":42}]`,
		},
		{
			name:     "success with nested array",
			command:  ":NESTED:",
			result:   [][]string{{"a", "b"}, {"c", "d"}},
			expected: `["ok", [["a","b"],["c","d"]]]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDispatchResponse(tt.command, tt.result, tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResponseFormatConsistency(t *testing.T) {
	t.Run("success responses start with ok", func(t *testing.T) {
		for _, r := range []any{"simple string", []string{"a", "b"}, nil, 42} {
			got := formatDispatchResponse(":TEST:", r, nil)
			assert.True(t, strings.HasPrefix(got, `["ok"`))
		}
	})

	t.Run("every response is valid JSON", func(t *testing.T) {
		for _, got := range []string{
			formatDispatchResponse(":TEST:", nil, errors.New(`bad byte "zz" at 1`)),
			formatDispatchResponse(":TEST:", "back\\slash\nnewline", nil),
			formatDispatchResponse(":TEST:", make(chan int), nil),
		} {
			assert.True(t, json.Valid([]byte(got)), got)
		}
	})

	t.Run("unencodable result is an error", func(t *testing.T) {
		got := formatDispatchResponse(":TEST:", make(chan int), nil)
		assert.True(t, strings.HasPrefix(got, `["error", ":TEST:`))
	})
}

type countingTicker struct{ ticks int }

func (c *countingTicker) Tick() { c.ticks++ }

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	t.Cleanup(Config.Init)
	return d
}

func TestCall_NoDispatcher(t *testing.T) {
	Config.Init()
	assert.Equal(t, `["error", "no handler registered"]`, Call(":VERSION:"))
}

func TestCall_Timestamp(t *testing.T) {
	Config.Init()
	got := Call(TimestampCommand)
	require.True(t, strings.HasPrefix(got, `["ok", "`))
	ns := strings.TrimSuffix(strings.TrimPrefix(got, `["ok", "`), `"]`)
	_, err := strconv.ParseInt(ns, 10, 64)
	assert.NoError(t, err)
}

func TestCall_DispatchesArgs(t *testing.T) {
	d := newTestDispatcher(t)
	var seen []string
	d.Register(":ADDRESS:OVERRIDE:", func(e dispatcher.Event) (any, error) {
		seen = e.Args
		return []string{"partyBase"}, nil
	})
	SetDispatcher(d)

	got := Call(":ADDRESS:OVERRIDE:", "partyBase=0x020244EC")
	assert.Equal(t, `["ok", ["partyBase"]]`, got)
	assert.Equal(t, []string{"partyBase=0x020244EC"}, seen)
}

func TestCall_InlineArgs(t *testing.T) {
	d := newTestDispatcher(t)
	var seen []string
	d.Register(":LOG:", func(e dispatcher.Event) (any, error) {
		seen = e.Args
		return nil, nil
	})
	SetDispatcher(d)

	assert.Equal(t, `["ok"]`, Call(":LOG:|lua|INFO|hello"))
	assert.Equal(t, []string{"lua", "INFO", "hello"}, seen)
}

func TestCall_UnknownCommand(t *testing.T) {
	SetDispatcher(newTestDispatcher(t))
	assert.Equal(t, `["error", "no handler registered"]`, Call(":NOPE:"))
}

func TestCall_HandlerError(t *testing.T) {
	d := newTestDispatcher(t)
	d.Register(":SESSION:END:", func(dispatcher.Event) (any, error) {
		return nil, errors.New("no active session")
	})
	SetDispatcher(d)
	assert.Equal(t, `["error", "no active session"]`, Call(":SESSION:END:"))
}

func TestFrame_DrivesTicker(t *testing.T) {
	Config.Init()
	t.Cleanup(Config.Init)

	assert.Equal(t, uint64(1), Frame())

	ticker := &countingTicker{}
	SetTicker(ticker)
	Frame()
	Frame()
	assert.Equal(t, 2, ticker.ticks)
	assert.Equal(t, uint64(3), Frames())
}

func TestVersion(t *testing.T) {
	Config.Init()
	t.Cleanup(Config.Init)
	assert.Equal(t, "No version set", Version())
	SetVersion("1.2.0")
	assert.Equal(t, "1.2.0", Version())
}
