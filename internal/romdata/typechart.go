package romdata

import "fmt"

// TypeCount is the number of type ids, including the unused "???" type.
const TypeCount = 18

const (
	chartSeparator  = 0xFE
	chartTerminator = 0xFF
	// maxMatchups bounds parsing of a table that never terminates.
	maxMatchups = 512
	matchupSize = 3
)

const (
	typeNormal uint8 = iota
	typeFighting
	typeFlying
	typePoison
	typeGround
	typeRock
	typeBug
	typeGhost
	typeSteel
	typeMystery
	typeFire
	typeWater
	typeGrass
	typeElectric
	typePsychic
	typeIce
	typeDragon
	typeDark
)

// Fraction is an exact damage multiplier.
type Fraction struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// FromTenths reduces a multiplier stored in tenths.
func FromTenths(t int) Fraction {
	if t == 0 {
		return Fraction{0, 1}
	}
	a, b := t, 10
	for b != 0 {
		a, b = b, a%b
	}
	return Fraction{t / a, 10 / a}
}

func (f Fraction) Float64() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	if f.Den == 1 {
		return fmt.Sprintf("%d", f.Num)
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

type matchup struct {
	attacker, defender uint8
	tenths             uint8
}

// typeChart holds attacker x defender multipliers in tenths.
type typeChart [TypeCount][TypeCount]uint8

func newTypeChart(ms []matchup) *typeChart {
	var c typeChart
	for a := range c {
		for d := range c[a] {
			c[a][d] = 10
		}
	}
	for _, m := range ms {
		c[m.attacker][m.defender] = m.tenths
	}
	return &c
}

func (c *typeChart) tenths(atk, def uint8) int {
	if atk >= TypeCount || def >= TypeCount {
		return 10
	}
	return int(c[atk][def])
}

// parseTypeChart reads a matchup stream up to its terminator. The foresight
// separator is skipped. A stream with an out-of-range type or multiplier, or
// with no terminator within maxMatchups entries, is rejected.
func parseTypeChart(b []byte) ([]matchup, bool) {
	var out []matchup
	for i := 0; i < maxMatchups; i++ {
		off := i * matchupSize
		if off+matchupSize > len(b) {
			return nil, false
		}
		atk, def, mult := b[off], b[off+1], b[off+2]
		switch {
		case atk == chartTerminator && def == chartTerminator:
			return out, len(out) > 0
		case atk == chartSeparator && def == chartSeparator:
			continue
		case atk >= TypeCount || def >= TypeCount:
			return nil, false
		}
		switch mult {
		case 0, 5, 10, 20:
		default:
			return nil, false
		}
		out = append(out, matchup{atk, def, mult})
	}
	return nil, false
}

// builtinMatchups is the English release's chart. Entries after the
// foresight separator are the ones Foresight and Odor Sleuth ignore.
var builtinMatchups = []matchup{
	{typeNormal, typeRock, 5}, {typeNormal, typeSteel, 5},
	{typeFire, typeFire, 5}, {typeFire, typeWater, 5}, {typeFire, typeGrass, 20},
	{typeFire, typeIce, 20}, {typeFire, typeBug, 20}, {typeFire, typeRock, 5},
	{typeFire, typeDragon, 5}, {typeFire, typeSteel, 20},
	{typeWater, typeFire, 20}, {typeWater, typeWater, 5}, {typeWater, typeGrass, 5},
	{typeWater, typeGround, 20}, {typeWater, typeRock, 20}, {typeWater, typeDragon, 5},
	{typeElectric, typeWater, 20}, {typeElectric, typeElectric, 5}, {typeElectric, typeGrass, 5},
	{typeElectric, typeGround, 0}, {typeElectric, typeFlying, 20}, {typeElectric, typeDragon, 5},
	{typeGrass, typeFire, 5}, {typeGrass, typeWater, 20}, {typeGrass, typeGrass, 5},
	{typeGrass, typePoison, 5}, {typeGrass, typeGround, 20}, {typeGrass, typeFlying, 5},
	{typeGrass, typeBug, 5}, {typeGrass, typeRock, 20}, {typeGrass, typeDragon, 5},
	{typeGrass, typeSteel, 5},
	{typeIce, typeWater, 5}, {typeIce, typeGrass, 20}, {typeIce, typeIce, 5},
	{typeIce, typeGround, 20}, {typeIce, typeFlying, 20}, {typeIce, typeDragon, 20},
	{typeIce, typeSteel, 5}, {typeIce, typeFire, 5},
	{typeFighting, typeNormal, 20}, {typeFighting, typeIce, 20}, {typeFighting, typePoison, 5},
	{typeFighting, typeFlying, 5}, {typeFighting, typePsychic, 5}, {typeFighting, typeBug, 5},
	{typeFighting, typeRock, 20}, {typeFighting, typeDark, 20}, {typeFighting, typeSteel, 20},
	{typePoison, typeGrass, 20}, {typePoison, typePoison, 5}, {typePoison, typeGround, 5},
	{typePoison, typeRock, 5}, {typePoison, typeGhost, 5}, {typePoison, typeSteel, 0},
	{typeGround, typeFire, 20}, {typeGround, typeElectric, 20}, {typeGround, typeGrass, 5},
	{typeGround, typePoison, 20}, {typeGround, typeFlying, 0}, {typeGround, typeBug, 5},
	{typeGround, typeRock, 20}, {typeGround, typeSteel, 20},
	{typeFlying, typeElectric, 5}, {typeFlying, typeGrass, 20}, {typeFlying, typeFighting, 20},
	{typeFlying, typeBug, 20}, {typeFlying, typeRock, 5}, {typeFlying, typeSteel, 5},
	{typePsychic, typeFighting, 20}, {typePsychic, typePoison, 20}, {typePsychic, typePsychic, 5},
	{typePsychic, typeDark, 0}, {typePsychic, typeSteel, 5},
	{typeBug, typeFire, 5}, {typeBug, typeGrass, 20}, {typeBug, typeFighting, 5},
	{typeBug, typePoison, 5}, {typeBug, typeFlying, 5}, {typeBug, typePsychic, 20},
	{typeBug, typeGhost, 5}, {typeBug, typeDark, 20}, {typeBug, typeSteel, 5},
	{typeRock, typeFire, 20}, {typeRock, typeIce, 20}, {typeRock, typeFighting, 5},
	{typeRock, typeGround, 5}, {typeRock, typeFlying, 20}, {typeRock, typeBug, 20},
	{typeRock, typeSteel, 5},
	{typeGhost, typeNormal, 0}, {typeGhost, typePsychic, 20}, {typeGhost, typeDark, 5},
	{typeGhost, typeSteel, 5}, {typeGhost, typeGhost, 20},
	{typeDragon, typeDragon, 20}, {typeDragon, typeSteel, 5},
	{typeDark, typeFighting, 5}, {typeDark, typePsychic, 20}, {typeDark, typeGhost, 20},
	{typeDark, typeDark, 5}, {typeDark, typeSteel, 5},
	{typeSteel, typeFire, 5}, {typeSteel, typeWater, 5}, {typeSteel, typeElectric, 5},
	{typeSteel, typeIce, 20}, {typeSteel, typeRock, 20}, {typeSteel, typeSteel, 5},
	// foresight
	{typeNormal, typeGhost, 0}, {typeFighting, typeGhost, 0},
}
