package memory

// Domain names understood by a Bus.
const (
	DomainIWRAM     = "IWRAM"
	DomainEWRAM     = "EWRAM"
	DomainROM       = "ROM"
	DomainSystemBus = "System Bus"
)

// Region is a classified address range and the primary domain that serves it.
// Addresses in [Start, End) map to domain offset addr-Base. Window, when
// non-zero, limits the primary path to [Start, Start+Window); reads past it
// go straight to the System Bus.
type Region struct {
	Name   string
	Domain string
	Base   uint32
	Start  uint32
	End    uint32
	Window uint32
}

// Contains reports whether addr lies in the region.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

// Primary reports whether [addr, addr+n) can be served by the region's own domain.
func (r Region) Primary(addr uint32, n int) bool {
	limit := uint64(r.End)
	if r.Window != 0 && uint64(r.Start)+uint64(r.Window) < limit {
		limit = uint64(r.Start) + uint64(r.Window)
	}
	return r.Contains(addr) && uint64(addr)+uint64(n) <= limit
}

// Offset converts an absolute address to a domain offset.
func (r Region) Offset(addr uint32) uint32 {
	return addr - r.Base
}

// Region names.
const (
	RegionPointers = "pointers"
	RegionIWRAM    = "iwram"
	RegionEWRAM    = "ewram"
	RegionROM      = "rom"
)

const (
	iwramBase = 0x03000000
	iwramSize = 0x8000
	ewramBase = 0x02000000
	ewramSize = 0x40000
	romBase   = 0x08000000
	romSize   = 0x2000000
)

// DefaultEWRAMWindow is how much of EWRAM most frontends expose under the EWRAM domain.
const DefaultEWRAMWindow = 0x8000

// DefaultRegions returns the handheld's memory map. The stable pointer block
// is listed before IWRAM so it classifies first.
func DefaultRegions(ewramWindow uint32) []Region {
	return []Region{
		{Name: RegionPointers, Domain: DomainIWRAM, Base: iwramBase, Start: 0x03005000, End: 0x03006000},
		{Name: RegionIWRAM, Domain: DomainIWRAM, Base: iwramBase, Start: iwramBase, End: iwramBase + iwramSize},
		{Name: RegionEWRAM, Domain: DomainEWRAM, Base: ewramBase, Start: ewramBase, End: ewramBase + ewramSize, Window: ewramWindow},
		{Name: RegionROM, Domain: DomainROM, Base: romBase, Start: romBase, End: romBase + romSize},
	}
}

// InEWRAM reports whether addr is a plausible pointer into extended working memory.
func InEWRAM(addr uint32) bool {
	return addr >= ewramBase && addr < ewramBase+ewramSize
}

// InROM reports whether addr lies in cartridge space.
func InROM(addr uint32) bool {
	return addr >= romBase && addr < romBase+romSize
}
