package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/pokemon"
	"github.com/monreader/extension/pkg/core"
)

const (
	iwramBase  = 0x03000000
	ewramBase  = 0x02000000
	romBase    = 0x08000000
	saveBlock1 = 0x02025A00
	saveBlock2 = 0x02024A00
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeDumps writes iwram.bin, ewram.bin and rom.gba holding a one-mon party.
func writeDumps(t *testing.T, dir string) {
	t.Helper()
	tbl := layout.Emerald()

	iwram := make([]byte, 0x8000)
	binary.LittleEndian.PutUint32(iwram[tbl.SaveBlock1Ptr-iwramBase:], saveBlock1)
	binary.LittleEndian.PutUint32(iwram[tbl.SaveBlock2Ptr-iwramBase:], saveBlock2)

	ewram := make([]byte, 0x40000)
	sb1 := uint32(saveBlock1 - ewramBase)
	binary.LittleEndian.PutUint32(ewram[sb1+tbl.PartyCountOffset:], 1)
	copy(ewram[sb1+tbl.PartyOffset:], pokemon.Encode(core.Mon{
		Personality: 0x12345678,
		OTID:        0x0001E240,
		Nickname:    "LEAF",
		Species:     277,
		Experience:  135,
		Moves:       [4]uint16{1, 43, 0, 0},
		PP:          [4]uint8{35, 30, 0, 0},
		Battle:      &core.BattleStats{Level: 5, CurrentHP: 18, MaxHP: 20},
	}))

	rom := make([]byte, 0x200)
	copy(rom[tbl.GameTitle-romBase:], "POKEMON EMER")
	copy(rom[tbl.GameCode-romBase:], "BPEE")

	iw, ew, r := dumpPaths(dir)
	require.NoError(t, os.WriteFile(iw, iwram, 0o644))
	require.NoError(t, os.WriteFile(ew, ewram, 0o644))
	require.NoError(t, os.WriteFile(r, rom, 0o644))
}

func TestDecode_ReadsParty(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)

	var opts decodeOptions
	opts.IWRAM, opts.EWRAM, opts.ROM = dumpPaths(dir)
	out, err := decode(opts, quietLogger())
	require.NoError(t, err)

	require.NotNil(t, out.Game)
	assert.Equal(t, "BPEE", out.Game.Code)
	assert.Equal(t, "POKEMON EMER", out.Game.Title)

	require.NotNil(t, out.Party)
	assert.Equal(t, 1, out.Party.Count)
	require.Len(t, out.Party.Slots, 1)
	e := out.Party.Slots[0].Entry
	require.NotNil(t, e)
	assert.Equal(t, "LEAF", e.Nickname)
	assert.Equal(t, uint16(277), e.Species)
	assert.Equal(t, 5, e.Level)

	assert.Empty(t, out.Boxes, "boxes off by default in the zero options")
	assert.NotEmpty(t, out.Reference.Fallbacks(), "tables past the end of a short ROM fall back")
}

func TestDecode_Boxes(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)

	var opts decodeOptions
	opts.IWRAM, opts.EWRAM, opts.ROM = dumpPaths(dir)
	opts.Boxes = true
	out, err := decode(opts, quietLogger())
	require.NoError(t, err)

	assert.Len(t, out.Boxes, layout.BoxCount)
	for _, b := range out.Boxes {
		assert.Zero(t, b.Filled())
	}
}

func TestDecode_Override(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)

	var opts decodeOptions
	opts.IWRAM, opts.EWRAM, opts.ROM = dumpPaths(dir)
	opts.Overrides = "bogusKey=0x02000000"
	_, err := decode(opts, quietLogger())
	assert.Error(t, err)
}

func TestDecode_MissingDumps(t *testing.T) {
	_, err := decode(decodeOptions{}, quietLogger())
	assert.Error(t, err)

	_, err = decode(decodeOptions{IWRAM: "nope.bin", EWRAM: "nope.bin"}, quietLogger())
	assert.Error(t, err)
}

func TestRun_DecodePrintsJSON(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)

	var buf bytes.Buffer
	require.NoError(t, run([]string{"decode", "-dir", dir, "-boxes=false"}, &buf))

	var out decodeOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotNil(t, out.Party)
	assert.Equal(t, "LEAF", out.Party.Slots[0].Entry.Nickname)
	assert.Empty(t, out.Boxes)
}

func TestRun_VersionAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run([]string{"version"}, &buf))
	assert.Contains(t, buf.String(), ExtensionName)

	assert.Error(t, run([]string{"frobnicate"}, &buf))
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)
	iw, ew, r := dumpPaths(dir)

	bus, closer, err := openSource(config.SourceConfig{Kind: config.SourceImage, IWRAM: iw, EWRAM: ew, ROM: r})
	require.NoError(t, err)
	assert.NotNil(t, bus)
	assert.Nil(t, closer)

	_, _, err = openSource(config.SourceConfig{Kind: "gdb"})
	assert.Error(t, err)
}

func TestDumpPaths(t *testing.T) {
	iw, ew, r := dumpPaths("dumps")
	assert.Equal(t, filepath.Join("dumps", "iwram.bin"), iw)
	assert.Equal(t, filepath.Join("dumps", "ewram.bin"), ew)
	assert.Equal(t, filepath.Join("dumps", "rom.gba"), r)
}
