// Package hostif is the surface a host program (emulator frontend, script
// bridge or the monreader binary) calls into: Call for commands and Frame
// once per emulated frame.
package hostif

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/monreader/extension/internal/dispatcher"
)

// TimestampCommand is answered without a dispatcher.
const TimestampCommand = ":TIMESTAMP:"

// Config defines how calls to this library will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// Frame advances the ticker by one frame and returns the frame count.
func Frame() uint64 {
	n := Config.frames.Add(1)
	if t := getTicker(); t != nil {
		t.Tick()
	}
	return n
}

// Frames returns how many times Frame has been called.
func Frames() uint64 {
	return Config.frames.Load()
}

// Call dispatches a command and returns the host response, either
// ["ok", result] or ["error", message]. A command without args may carry
// them inline as "command|arg1|arg2".
func Call(command string, args ...string) string {
	if command == TimestampCommand {
		return formatDispatchResponse(command, getTimestamp(), nil)
	}

	d := GetDispatcher()
	if d == nil {
		return formatDispatchResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	dispatchCommand := command
	if len(args) == 0 && !d.HasHandler(command) {
		if head, rest, ok := strings.Cut(command, "|"); ok && d.HasHandler(head) {
			dispatchCommand = head
			args = strings.Split(rest, "|")
		}
	}
	if !d.HasHandler(dispatchCommand) {
		return formatDispatchResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   dispatchCommand,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(dispatchCommand, result, err)
}

// formatDispatchResponse formats the dispatcher result for the host
func formatDispatchResponse(command string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", %s]`, jsonString(err.Error()))
	}
	switch v := result.(type) {
	case nil:
		return `["ok"]`
	case string:
		return fmt.Sprintf(`["ok", %s]`, jsonString(v))
	}
	b, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf(`["error", %s]`, jsonString(command+": "+jerr.Error()))
	}
	return fmt.Sprintf(`["ok", %s]`, b)
}

// jsonString quotes s as a JSON string literal.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
