package v1

import (
	"fmt"
	"sort"
	"time"

	"github.com/monreader/extension/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session          *core.Session
	Ended            time.Time
	ExtensionVersion string
	Party            []core.CollectionSnapshot
	Enemy            []core.CollectionSnapshot
	Boxes            map[int]core.CollectionSnapshot
	Battles          []core.BattleSnapshot
	Player           *core.PlayerSnapshot
}

// Build converts recorded snapshots to the export format. Consecutive
// snapshots of a collection that show the same content collapse into one
// Frame.
func Build(data *SessionData) Export {
	export := Export{
		FormatVersion:    FormatVersion,
		ExtensionVersion: data.ExtensionVersion,
		Party:            make([]Frame, 0),
		Enemy:            make([]Frame, 0),
		Boxes:            make([]Box, 0, len(data.Boxes)),
		Battles:          make([][]any, 0, len(data.Battles)),
		Mons:             make([]Mon, 0),
	}
	if s := data.Session; s != nil {
		export.Session = SessionInfo{
			ID:        s.ID,
			Started:   s.Started,
			Ended:     data.Ended,
			GameCode:  s.Game.Code,
			GameTitle: s.Game.Title,
			Patch:     s.Game.Patch,
		}
	}

	mons := newMonIndex()
	var maxFrame uint64
	track := func(snaps []core.CollectionSnapshot) []Frame {
		var frames []Frame
		for _, snap := range snaps {
			rows := slotRows(snap.Slots)
			if n := len(frames); n == 0 || !sameRows(frames[n-1].Slots, rows) {
				frames = append(frames, Frame{FrameNum: snap.Frame, Slots: rows})
			}
			mons.observe(snap)
			if snap.Frame > maxFrame {
				maxFrame = snap.Frame
			}
		}
		if frames == nil {
			frames = make([]Frame, 0)
		}
		return frames
	}
	export.Party = track(data.Party)
	export.Enemy = track(data.Enemy)

	numbers := make([]int, 0, len(data.Boxes))
	for n := range data.Boxes {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		snap := data.Boxes[n]
		export.Boxes = append(export.Boxes, Box{Number: n, FrameNum: snap.Frame, Slots: slotRows(snap.Slots)})
		mons.observe(snap)
	}

	// Format: [frameNum, flags, "none" | "wild" | "trainer", double]
	for _, b := range data.Battles {
		kind := "none"
		switch {
		case b.Wild:
			kind = "wild"
		case b.Trainer:
			kind = "trainer"
		}
		export.Battles = append(export.Battles, []any{b.Frame, b.Flags, kind, b.Double})
		if b.Frame > maxFrame {
			maxFrame = b.Frame
		}
	}

	if p := data.Player; p != nil {
		export.Player = &Player{
			Name:      p.Name,
			Female:    p.Female,
			TrainerID: p.TrainerID,
			SecretID:  p.SecretID,
			PlayTime:  fmt.Sprintf("%d:%02d:%02d", p.PlayHours, p.PlayMinutes, p.PlaySeconds),
			Money:     p.Money,
		}
	}

	export.Mons = mons.list()
	export.EndFrame = maxFrame
	return export
}

// slotRows renders slots as [personality, species, level, hp, maxHp] rows.
func slotRows(slots []core.Slot) [][]any {
	rows := make([][]any, len(slots))
	for i, s := range slots {
		if s.Entry == nil {
			continue
		}
		e := s.Entry
		rows[i] = []any{e.Personality, e.Species, e.Level, e.CurrentHP, e.Stats.HP}
	}
	return rows
}

func sameRows(a, b [][]any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

type monIndex struct {
	byPID map[uint32]*Mon
	order []uint32
}

func newMonIndex() *monIndex {
	return &monIndex{byPID: make(map[uint32]*Mon)}
}

func (x *monIndex) observe(snap core.CollectionSnapshot) {
	for _, s := range snap.Slots {
		e := s.Entry
		if e == nil {
			continue
		}
		m, ok := x.byPID[e.Personality]
		if !ok {
			m = &Mon{
				Personality: e.Personality,
				Species:     e.Species,
				SpeciesName: e.SpeciesName,
				Nickname:    e.Nickname,
				Types:       e.Types,
				Nature:      e.NatureName,
				Shiny:       e.Shiny,
				FirstFrame:  snap.Frame,
				FirstLevel:  e.Level,
				Tier:        e.Tier,
				Seen:        []string{},
			}
			x.byPID[e.Personality] = m
			x.order = append(x.order, e.Personality)
		}
		if snap.Frame >= m.LastFrame {
			m.LastFrame = snap.Frame
			m.LastLevel = e.Level
			// evolution changes species under the same personality
			m.Species, m.SpeciesName = e.Species, e.SpeciesName
		}
		if !contains(m.Seen, snap.Kind) {
			m.Seen = append(m.Seen, snap.Kind)
		}
	}
}

func (x *monIndex) list() []Mon {
	out := make([]Mon, 0, len(x.order))
	for _, pid := range x.order {
		out = append(out, *x.byPID[pid])
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
