package tracker

import (
	"github.com/monreader/extension/internal/stats"
	"github.com/monreader/extension/pkg/core"
)

const unknownName = "unknown"

// enrich attaches names and derived values to a decoded record. Unknown
// species are kept but marked unidentified.
func (t *Tracker) enrich(m core.Mon) *core.Entry {
	e := &core.Entry{
		Mon:         m,
		SpeciesName: t.ref.SpeciesName(int(m.Species)),
		Types:       []string{},
		Shiny:       stats.IsShiny(m.Personality, m.OTID),
	}

	nature := t.ref.Nature(int(m.Nature))
	e.NatureName = nature.Name

	for i, id := range m.Moves {
		if id != 0 {
			e.MoveNames[i] = t.ref.MoveName(int(id))
		}
	}
	if m.HeldItem != 0 {
		if it, ok := t.ref.Item(int(m.HeldItem)); ok {
			e.ItemName = it.Name
		}
	}

	sp, ok := t.ref.Species(int(m.Species))
	e.Identified = ok
	if !ok {
		e.SpeciesName = unknownName
	}

	full := ok && !sp.Partial
	if full {
		e.Types = append(e.Types, t.ref.TypeName(int(sp.Types[0])))
		if !sp.MonoType() {
			e.Types = append(e.Types, t.ref.TypeName(int(sp.Types[1])))
		}
		e.AbilityID = sp.Ability(m.AbilitySlot)
		e.AbilityName = t.ref.AbilityName(int(e.AbilityID))
	} else {
		e.AbilityName = unknownName
	}

	switch {
	case m.Battle != nil:
		e.Level = int(m.Battle.Level)
		e.Stats = m.Battle.Stats()
		e.CurrentHP = m.Battle.CurrentHP
	case full:
		e.Level = stats.LevelForExp(sp.Growth, m.Experience)
		e.LevelEstimated = true
		e.Stats = stats.Compute(sp.Base, m.IVs, m.EVs, e.Level, m.Nature)
		e.StatsComputed = true
		e.CurrentHP = e.Stats.HP
	}

	if t.cfg.Rate && full {
		if r, ok := t.ref.Rate(int(m.Species)); ok {
			e.Tier, e.TierStars = r.Tier, r.Stars
		}
	}
	return e
}
