// Package romdata loads the static reference tables from cartridge ROM once
// and resolves lookups through ROM, built-in and synthesized sources.
package romdata

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/stats"
)

// Memory is the read surface the cache needs.
type Memory interface {
	Block(addr uint32, n int) ([]byte, bool)
}

// Where a table's entries came from.
const (
	SourceROM         = "rom"
	SourceBuiltin     = "builtin"
	SourceSynthesized = "synthesized"
	SourceMissing     = "missing"
)

// TableStatus describes one reference table after load.
type TableStatus struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Entries int    `json:"entries"`
}

// LoadReport summarizes a load.
type LoadReport struct {
	Tables   []TableStatus `json:"tables"`
	Duration time.Duration `json:"duration"`
	LoadedAt time.Time     `json:"loadedAt"`
}

// Fallbacks lists the tables not served from ROM.
func (r LoadReport) Fallbacks() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Source != SourceROM {
			out = append(out, t.Name)
		}
	}
	return out
}

// Cache holds the reference tables. Tables are loaded on first use and are
// read-only afterwards.
type Cache struct {
	mem    Memory
	table  layout.Table
	logger *slog.Logger

	once   sync.Once
	loaded atomic.Bool
	report LoadReport

	species []SpeciesData
	moves   []MoveData
	items   []ItemData
	chart   *typeChart

	speciesName Source[string]
	moveName    Source[string]
	typeName    Source[string]
	abilityName Source[string]
	natureName  Source[string]
}

// New creates a Cache reading ROM tables at the addresses in table.
func New(mem Memory, table layout.Table, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{mem: mem, table: table, logger: logger}
}

// Load reads every table. Only the first call does any work.
func (c *Cache) Load() LoadReport {
	c.once.Do(c.load)
	return c.report
}

func (c *Cache) load() {
	start := time.Now()
	var report LoadReport

	note := func(name, source string, entries int) {
		report.Tables = append(report.Tables, TableStatus{Name: name, Source: source, Entries: entries})
		if source != SourceROM {
			c.logger.Warn("reference table not read from ROM", "table", name, "source", source)
		}
	}

	// names
	speciesNames, n := c.names(c.table.SpeciesNames, SpeciesCount, speciesNameStride)
	c.speciesName = FirstOf(fromNames(speciesNames), fromNames(builtinSpeciesNames[:]), synthesized("Species #%d"))
	note("speciesNames", pick(speciesNames != nil, SourceROM, SourceBuiltin), max(n, len(builtinSpeciesNames)))

	moveNames, n := c.names(c.table.MoveNames, MoveCount, moveNameStride)
	c.moveName = FirstOf(fromNames(moveNames), synthesized("Move #%d"))
	note("moveNames", pick(moveNames != nil, SourceROM, SourceSynthesized), n)

	typeNames, n := c.names(c.table.TypeNames, TypeCount, typeNameStride)
	c.typeName = FirstOf(fromNames(typeNames), fromNames(builtinTypeNames[:]), synthesized("Type #%d"))
	note("typeNames", pick(typeNames != nil, SourceROM, SourceBuiltin), max(n, len(builtinTypeNames)))

	abilityNames, n := c.names(c.table.AbilityNames, AbilityCount, abilityNameStride)
	c.abilityName = FirstOf(fromNames(abilityNames), fromNames(builtinAbilityNames[:]), synthesized("Ability #%d"))
	note("abilityNames", pick(abilityNames != nil, SourceROM, SourceBuiltin), max(n, len(builtinAbilityNames)))

	natureNames, _ := c.names(c.table.NatureNames, NatureCount, natureNameStride)
	c.natureName = FirstOf(fromNames(natureNames), fromNames(builtinNatureNames[:]), synthesized("Nature #%d"))
	note("natureNames", pick(natureNames != nil, SourceROM, SourceBuiltin), NatureCount)

	// data
	if b, ok := c.mem.Block(c.table.SpeciesStats, SpeciesCount*speciesStride); ok {
		if rows := parseRows(b, SpeciesCount, speciesStride, parseSpecies); validSpecies(rows) {
			c.species = rows
		}
	}
	note("species", pick(c.species != nil, SourceROM, SourceMissing), len(c.species))

	if b, ok := c.mem.Block(c.table.Moves, MoveCount*moveStride); ok {
		if rows := parseRows(b, MoveCount, moveStride, parseMove); validMoves(rows) {
			c.moves = rows
		}
	}
	note("moves", pick(c.moves != nil, SourceROM, SourceMissing), len(c.moves))

	if b, ok := c.mem.Block(c.table.Items, ItemCount*itemStride); ok {
		if rows := parseRows(b, ItemCount, itemStride, parseItem); validItems(rows) {
			c.items = rows
		}
	}
	note("items", pick(c.items != nil, SourceROM, SourceMissing), len(c.items))

	var matchups []matchup
	if b, ok := c.mem.Block(c.table.TypeChart, maxMatchups*matchupSize); ok {
		matchups, _ = parseTypeChart(b)
	}
	if matchups != nil {
		c.chart = newTypeChart(matchups)
		note("typeChart", SourceROM, len(matchups))
	} else {
		c.chart = newTypeChart(builtinMatchups)
		note("typeChart", SourceBuiltin, len(builtinMatchups))
	}

	report.LoadedAt = time.Now()
	report.Duration = report.LoadedAt.Sub(start)
	c.report = report
	c.loaded.Store(true)
	c.logger.Info("reference tables loaded",
		"duration", report.Duration,
		"fallbacks", report.Fallbacks())
}

func (c *Cache) names(addr uint32, count, stride int) ([]string, int) {
	b, ok := c.mem.Block(addr, count*stride)
	if !ok {
		return nil, 0
	}
	return parseNames(b, count, stride)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// Report returns the load report, loading first if needed.
func (c *Cache) Report() LoadReport { return c.Load() }

// Loaded returns the load report if the tables have been loaded. It never
// triggers a load, so status polling cannot pin fallbacks before the ROM is
// readable.
func (c *Cache) Loaded() (LoadReport, bool) {
	if !c.loaded.Load() {
		return LoadReport{}, false
	}
	return c.report, true
}

// Species returns species data for a known id (1 to SpeciesCount-1). When
// the stats table could not be read the result is Partial and carries only
// the name.
func (c *Cache) Species(id int) (SpeciesData, bool) {
	c.Load()
	if id <= 0 || id >= SpeciesCount {
		return SpeciesData{}, false
	}
	if c.species == nil {
		return SpeciesData{ID: uint16(id), Name: c.speciesName.Get(id), Partial: true}, true
	}
	s := c.species[id]
	s.Name = c.speciesName.Get(id)
	return s, true
}

// SpeciesName never fails; unknown ids get a placeholder.
func (c *Cache) SpeciesName(id int) string {
	c.Load()
	return c.speciesName.Get(id)
}

// Move returns move data for ids 1 to MoveCount-1.
func (c *Cache) Move(id int) (MoveData, bool) {
	c.Load()
	if id <= 0 || id >= MoveCount {
		return MoveData{}, false
	}
	if c.moves == nil {
		return MoveData{ID: uint16(id), Name: c.moveName.Get(id), Partial: true}, true
	}
	m := c.moves[id]
	m.Name = c.moveName.Get(id)
	return m, true
}

func (c *Cache) MoveName(id int) string {
	c.Load()
	return c.moveName.Get(id)
}

// Item returns item data for ids 1 to ItemCount-1.
func (c *Cache) Item(id int) (ItemData, bool) {
	c.Load()
	if id <= 0 || id >= ItemCount {
		return ItemData{}, false
	}
	if c.items == nil {
		return ItemData{ID: uint16(id), Name: synthesized("Item #%d").Get(id), Partial: true}, true
	}
	return c.items[id], true
}

func (c *Cache) TypeName(id int) string {
	c.Load()
	return c.typeName.Get(id)
}

func (c *Cache) AbilityName(id int) string {
	c.Load()
	return c.abilityName.Get(id)
}

// Nature returns a nature's name and modifiers. Ids wrap modulo 25.
func (c *Cache) Nature(id int) NatureData {
	c.Load()
	n := uint8(((id % NatureCount) + NatureCount) % NatureCount)
	up, down, neutral := stats.NatureEffect(n)
	return NatureData{
		ID:      n,
		Name:    c.natureName.Get(int(n)),
		Up:      up,
		Down:    down,
		Neutral: neutral,
	}
}

// Effectiveness returns an attack multiplier in tenths. It satisfies
// stats.EffectivenessFunc.
func (c *Cache) Effectiveness(attacker, defender uint8) int {
	c.Load()
	return c.chart.tenths(attacker, defender)
}

// TypeMultiplier returns an attack multiplier. Pairs absent from the
// chart are neutral.
func (c *Cache) TypeMultiplier(attacker, defender uint8) Fraction {
	return FromTenths(c.Effectiveness(attacker, defender))
}

// Rate computes the tier rating of a species, or false when its stats are
// unknown.
func (c *Cache) Rate(id int) (stats.Rating, bool) {
	s, ok := c.Species(id)
	if !ok || s.Partial {
		return stats.Rating{}, false
	}
	typing := stats.DefensiveScore(s.Types[0], s.Types[1], c.Effectiveness)
	return stats.Rate(s.Base, typing), true
}
