package stats

import (
	"math"

	"github.com/monreader/extension/pkg/core"
)

// TypeCount is the number of attacking types checked for a defensive profile.
const TypeCount = 18

// EffectivenessFunc returns a matchup multiplier in tenths (0, 5, 10, 20).
type EffectivenessFunc func(attacker, defender uint8) int

// DefensiveScore rates a typing in [0, 1] from its weaknesses, resistances
// and immunities across every attacking type.
func DefensiveScore(type1, type2 uint8, eff EffectivenessFunc) float64 {
	var weak, resist, immune int
	for atk := uint8(0); atk < TypeCount; atk++ {
		e := eff(atk, type1)
		if type2 != type1 {
			e = e * eff(atk, type2) / 10
		}
		switch {
		case e > 10:
			weak++
		case e == 0:
			immune++
		case e < 10:
			resist++
		}
	}
	score := 0.5 + float64(resist)*0.05 + float64(immune)*0.1 - float64(weak)*0.08
	return math.Min(1, math.Max(0, score))
}

// TierBreakdown holds the component scores of a rating.
type TierBreakdown struct {
	BST     int `json:"bst"`
	HP      int `json:"hp"`
	Speed   int `json:"speed"`
	Defense int `json:"defense"`
	Typing  int `json:"typing"`
}

// Rating is a species' randomizer tier.
type Rating struct {
	Tier    string        `json:"tier"`
	Stars   int           `json:"stars"`
	Score   int           `json:"score"`
	Details TierBreakdown `json:"details"`
}

// Rate scores a species by its base stats and defensive typing.
func Rate(base core.StatBlock, typeScore float64) Rating {
	bst := math.Min(float64(base.Total())/600, 1) * 100
	hp := float64(base.HP) / 255 * 150
	speed := float64(base.Speed) / 200 * 130
	defense := float64(base.Defense+base.SpDefense) / 400 * 120
	typing := typeScore * 100

	total := bst*0.30 + hp*0.20 + speed*0.15 + defense*0.20 + typing*0.15

	r := Rating{
		Score: int(math.Floor(total)),
		Details: TierBreakdown{
			BST:     int(math.Floor(bst)),
			HP:      int(math.Floor(hp)),
			Speed:   int(math.Floor(speed)),
			Defense: int(math.Floor(defense)),
			Typing:  int(math.Floor(typing)),
		},
	}
	switch {
	case total >= 90:
		r.Tier, r.Stars = "S", 5
	case total >= 75:
		r.Tier, r.Stars = "A", 4
	case total >= 60:
		r.Tier, r.Stars = "B", 3
	case total >= 45:
		r.Tier, r.Stars = "C", 2
	default:
		r.Tier, r.Stars = "D", 1
	}
	return r
}
