package pokemon

// Substruct identifies one of the four 12-byte data substructures.
type Substruct uint8

const (
	Growth Substruct = iota
	Attacks
	Condition
	Misc
)

func (s Substruct) String() string {
	switch s {
	case Growth:
		return "G"
	case Attacks:
		return "A"
	case Condition:
		return "E"
	case Misc:
		return "M"
	}
	return "?"
}

// orders maps seed%24 to the substructure stored in each physical slot.
var orders = [24][4]Substruct{
	{Growth, Attacks, Condition, Misc}, // GAEM
	{Growth, Attacks, Misc, Condition}, // GAME
	{Growth, Condition, Attacks, Misc}, // GEAM
	{Growth, Condition, Misc, Attacks}, // GEMA
	{Growth, Misc, Attacks, Condition}, // GMAE
	{Growth, Misc, Condition, Attacks}, // GMEA
	{Attacks, Growth, Condition, Misc}, // AGEM
	{Attacks, Growth, Misc, Condition}, // AGME
	{Attacks, Condition, Growth, Misc}, // AEGM
	{Attacks, Condition, Misc, Growth}, // AEMG
	{Attacks, Misc, Growth, Condition}, // AMGE
	{Attacks, Misc, Condition, Growth}, // AMEG
	{Condition, Growth, Attacks, Misc}, // EGAM
	{Condition, Growth, Misc, Attacks}, // EGMA
	{Condition, Attacks, Growth, Misc}, // EAGM
	{Condition, Attacks, Misc, Growth}, // EAMG
	{Condition, Misc, Growth, Attacks}, // EMGA
	{Condition, Misc, Attacks, Growth}, // EMAG
	{Misc, Growth, Attacks, Condition}, // MGAE
	{Misc, Growth, Condition, Attacks}, // MGEA
	{Misc, Attacks, Growth, Condition}, // MAGE
	{Misc, Attacks, Condition, Growth}, // MAEG
	{Misc, Condition, Growth, Attacks}, // MEGA
	{Misc, Condition, Attacks, Growth}, // MEAG
}

// Order returns the physical substructure order for a personality value.
func Order(seed uint32) [4]Substruct {
	return orders[seed%24]
}

// Positions returns, for each substructure, the physical slot holding it.
func Positions(seed uint32) [4]int {
	var pos [4]int
	for slot, s := range Order(seed) {
		pos[s] = slot
	}
	return pos
}
