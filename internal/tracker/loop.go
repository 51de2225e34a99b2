package tracker

import (
	"log/slog"
	"time"

	"github.com/monreader/extension/internal/dispatcher"
)

// Snapshot commands emitted by the loop.
const (
	CmdParty  = ":PARTY:"
	CmdEnemy  = ":ENEMY:"
	CmdBox    = ":BOX:"
	CmdBattle = ":BATTLE:"
	CmdPlayer = ":PLAYER:"
)

// Emitter receives snapshots. *dispatcher.Dispatcher satisfies it.
type Emitter interface {
	Dispatch(dispatcher.Event) (any, error)
}

// Schedule is the loop's cadence in frames.
type Schedule struct {
	Update      uint64
	FullUpdate  uint64
	BattleCheck uint64
	// Boxes includes the PC boxes in every full update.
	Boxes bool
}

// DefaultSchedule runs a quick update twice a second at 60 fps.
func DefaultSchedule() Schedule {
	return Schedule{Update: 30, FullUpdate: 300, BattleCheck: 10, Boxes: true}
}

// Loop drives a Tracker from the host's per-frame callback. Tick never
// blocks on consumers; snapshots a full queue cannot take are dropped by
// the emitter.
type Loop struct {
	t      *Tracker
	emit   Emitter
	sched  Schedule
	logger *slog.Logger

	frame    uint64
	inBattle bool
	flags    uint32
}

func NewLoop(t *Tracker, emit Emitter, sched Schedule, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSchedule()
	if sched.Update == 0 {
		sched.Update = def.Update
	}
	if sched.FullUpdate == 0 {
		sched.FullUpdate = def.FullUpdate
	}
	if sched.BattleCheck == 0 {
		sched.BattleCheck = def.BattleCheck
	}
	return &Loop{t: t, emit: emit, sched: sched, logger: logger}
}

// Frame returns the number of ticks so far.
func (l *Loop) Frame() uint64 { return l.frame }

// InBattle reports the last observed battle state.
func (l *Loop) InBattle() bool { return l.inBattle }

// Tick advances one frame and runs whatever work is due.
func (l *Loop) Tick() {
	l.frame++
	l.t.SetFrame(l.frame)
	first := l.frame == 1

	if first || l.frame%l.sched.FullUpdate == 0 {
		l.full()
	}
	if first || l.frame%l.sched.BattleCheck == 0 {
		l.checkBattle()
	}
	if first || l.frame%l.sched.Update == 0 {
		l.update()
	}
}

// full refreshes pointers and sends the slow-changing snapshots.
func (l *Loop) full() {
	l.t.ResetPointers()
	if p, ok := l.t.Player(); ok {
		l.send(CmdPlayer, p)
	}
	if l.sched.Boxes {
		for _, b := range l.t.Boxes() {
			l.send(CmdBox, b)
		}
	}
}

func (l *Loop) checkBattle() {
	b, ok := l.t.Battle()
	if !ok {
		return
	}
	if b.InBattle != l.inBattle || b.Flags != l.flags {
		l.inBattle, l.flags = b.InBattle, b.Flags
		l.send(CmdBattle, b)
	}
}

func (l *Loop) update() {
	if p, ok := l.t.Party(); ok {
		l.send(CmdParty, p)
	}
	if l.inBattle {
		if e, ok := l.t.EnemyParty(); ok {
			l.send(CmdEnemy, e)
		}
	}
}

func (l *Loop) send(cmd string, payload any) {
	_, err := l.emit.Dispatch(dispatcher.Event{
		Command:   cmd,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		l.logger.Debug("snapshot not delivered", "command", cmd, "frame", l.frame, "error", err)
	}
}
