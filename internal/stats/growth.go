package stats

import "sort"

// GrowthRate is the experience curve index stored in species data.
type GrowthRate uint8

const (
	MediumFast GrowthRate = iota
	Erratic
	Fluctuating
	MediumSlow
	Fast
	Slow
)

const MaxLevel = 100

var growthNames = [...]string{"Medium Fast", "Erratic", "Fluctuating", "Medium Slow", "Fast", "Slow"}

func (g GrowthRate) String() string {
	if int(g) < len(growthNames) {
		return growthNames[g]
	}
	return "Unknown"
}

// expTables[rate][level] is the total experience needed to reach level.
var expTables [len(growthNames)][MaxLevel + 1]uint32

func init() {
	for r := range expTables {
		for lvl := 2; lvl <= MaxLevel; lvl++ {
			expTables[r][lvl] = uint32(max(expFormula(GrowthRate(r), int64(lvl)), 0))
		}
	}
}

func expFormula(rate GrowthRate, n int64) int64 {
	n3 := n * n * n
	switch rate {
	case Erratic:
		switch {
		case n < 50:
			return n3 * (100 - n) / 50
		case n < 68:
			return n3 * (150 - n) / 100
		case n < 98:
			return n3 * ((1911 - 10*n) / 3) / 500
		default:
			return n3 * (160 - n) / 100
		}
	case Fluctuating:
		switch {
		case n < 15:
			return n3 * ((n+1)/3 + 24) / 50
		case n < 36:
			return n3 * (n + 14) / 50
		default:
			return n3 * (n/2 + 32) / 50
		}
	case MediumSlow:
		return 6*n3/5 - 15*n*n + 100*n - 140
	case Fast:
		return 4 * n3 / 5
	case Slow:
		return 5 * n3 / 4
	default:
		return n3
	}
}

// ExpForLevel returns the experience threshold of level. Unknown rates use
// the medium-fast curve; levels are clamped to [1, 100].
func ExpForLevel(rate GrowthRate, level int) uint32 {
	if int(rate) >= len(expTables) {
		rate = MediumFast
	}
	level = min(max(level, 1), MaxLevel)
	return expTables[rate][level]
}

// LevelForExp returns the highest level whose threshold exp has reached.
func LevelForExp(rate GrowthRate, exp uint32) int {
	if int(rate) >= len(expTables) {
		rate = MediumFast
	}
	t := expTables[rate][1:]
	// first level whose threshold exceeds exp
	i := sort.Search(len(t), func(i int) bool { return t[i] > exp })
	return max(i, 1)
}
