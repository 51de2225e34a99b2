// Package stats derives battle stats, shininess, levels and tier ratings from
// decoded records and species reference data.
package stats

import "github.com/monreader/extension/pkg/core"

// natureStats is the stat order natures index into.
var natureStats = [5]core.Stat{
	core.StatAttack,
	core.StatDefense,
	core.StatSpeed,
	core.StatSpAttack,
	core.StatSpDefense,
}

// NatureEffect returns the stat a nature raises and the one it lowers.
// Neutral natures raise and lower the same stat.
func NatureEffect(nature uint8) (up, down core.Stat, neutral bool) {
	n := nature % 25
	up = natureStats[n/5]
	down = natureStats[n%5]
	return up, down, up == down
}

// HP computes maximum hit points. A base of 1 always yields 1.
func HP(base, iv, ev, level int) int {
	if base == 1 {
		return 1
	}
	return (2*base+iv+ev/4)*level/100 + level + 10
}

// Stat computes a non-HP stat including the nature modifier.
func Stat(base, iv, ev, level int, nature uint8, s core.Stat) int {
	v := (2*base+iv+ev/4)*level/100 + 5
	up, down, neutral := NatureEffect(nature)
	if neutral {
		return v
	}
	switch s {
	case up:
		return v * 110 / 100
	case down:
		return v * 90 / 100
	}
	return v
}

// Compute returns all six stats for a record at level.
func Compute(base, ivs, evs core.StatBlock, level int, nature uint8) core.StatBlock {
	out := core.StatBlock{
		HP: HP(base.HP, ivs.HP, evs.HP, level),
	}
	for s := core.StatAttack; s <= core.StatSpDefense; s++ {
		out.Set(s, Stat(base.Get(s), ivs.Get(s), evs.Get(s), level, nature, s))
	}
	return out
}

// ShinyValue is the XOR of the four halfwords of the personality and OT id.
func ShinyValue(seed, otid uint32) uint16 {
	return uint16(seed>>16) ^ uint16(seed) ^ uint16(otid>>16) ^ uint16(otid)
}

// IsShiny reports whether a personality/OT pair is shiny.
func IsShiny(seed, otid uint32) bool {
	return ShinyValue(seed, otid) < 8
}
