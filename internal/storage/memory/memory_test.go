package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/config"
	v1 "github.com/monreader/extension/internal/storage/memory/export/v1"
	"github.com/monreader/extension/pkg/core"
)

func testSession() *core.Session {
	return &core.Session{
		ID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
		Started: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Game:    core.GameInfo{Code: "BPEE", Title: "POKEMON EMER"},
		Version: "1.0.0",
	}
}

func party(frame uint64, level int) *core.CollectionSnapshot {
	return &core.CollectionSnapshot{
		Kind:  core.KindParty,
		Frame: frame,
		Count: 1,
		Slots: []core.Slot{{Index: 0, Entry: &core.Entry{
			Mon:         core.Mon{Personality: 0x12345678, Species: 277, Nickname: "TREECKO"},
			SpeciesName: "Treecko",
			Level:       level,
			CurrentHP:   20,
			Stats:       core.StatBlock{HP: 20},
		}}},
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{}, "dev")
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEndSession_WithoutStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, "dev")
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
}

func TestRecordCollection_ByKind(t *testing.T) {
	b := New(config.MemoryConfig{}, "dev")
	require.NoError(t, b.StartSession(testSession()))

	require.NoError(t, b.RecordCollection(party(30, 5)))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindEnemy, Frame: 30}))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindBox, Box: 3, Frame: 30}))
	require.NoError(t, b.RecordCollection(&core.CollectionSnapshot{Kind: core.KindBox, Box: 3, Frame: 300}))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 40, InBattle: true, Wild: true, Flags: 4}))

	assert.Error(t, b.RecordCollection(&core.CollectionSnapshot{Kind: "daycare"}))

	assert.Equal(t, map[string]int{"party": 1, "enemy": 1, "box": 1, "battle": 1}, b.Counts())
}

func TestStartSession_Resets(t *testing.T) {
	b := New(config.MemoryConfig{}, "dev")
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(party(30, 5)))

	require.NoError(t, b.StartSession(testSession()))
	assert.Equal(t, 0, b.Counts()[core.KindParty])
}

func TestEndSession_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir}, "1.2.3")
	require.NoError(t, b.StartSession(testSession()))

	require.NoError(t, b.RecordCollection(party(30, 5)))
	require.NoError(t, b.RecordCollection(party(60, 5)))
	require.NoError(t, b.RecordCollection(party(90, 6)))
	require.NoError(t, b.RecordPlayer(&core.PlayerSnapshot{Name: "MAY", Female: true, PlayHours: 1, PlayMinutes: 2, PlaySeconds: 3}))

	require.NoError(t, b.EndSession())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "BPEE_20260115_103000_0f8fad5b.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(raw, &export))

	assert.Equal(t, v1.FormatVersion, export.FormatVersion)
	assert.Equal(t, "1.2.3", export.ExtensionVersion)
	assert.Equal(t, "BPEE", export.Session.GameCode)
	assert.Equal(t, uint64(90), export.EndFrame)
	require.Len(t, export.Party, 2, "unchanged snapshots collapse")
	assert.Equal(t, uint64(30), export.Party[0].FrameNum)
	assert.Equal(t, uint64(90), export.Party[1].FrameNum)
	require.NotNil(t, export.Player)
	assert.Equal(t, "1:02:03", export.Player.PlayTime)
	require.Len(t, export.Mons, 1)
	assert.Equal(t, 5, export.Mons[0].FirstLevel)
	assert.Equal(t, 6, export.Mons[0].LastLevel)

	assert.Equal(t, 0, b.Counts()[core.KindParty], "session data cleared after export")
}

func TestEndSession_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true}, "dev")
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(party(30, 5)))
	require.NoError(t, b.EndSession())

	path := b.ExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Len(t, export.Party, 1)
}

func TestConcurrentRecords(t *testing.T) {
	b := New(config.MemoryConfig{}, "dev")
	require.NoError(t, b.StartSession(testSession()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = b.RecordCollection(party(uint64(i), 5))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = b.RecordBattle(&core.BattleSnapshot{Frame: uint64(i)})
		}(i)
	}
	wg.Wait()

	counts := b.Counts()
	assert.Equal(t, 50, counts[core.KindParty])
	assert.Equal(t, 50, counts["battle"])
}
