package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/monreader/extension/internal/database"
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// newTestBackend uses a long flush interval so tests control when rows land.
func newTestBackend(t *testing.T) (*Backend, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b, db
}

func testSession() *core.Session {
	return &core.Session{
		ID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
		Started: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Game:    core.GameInfo{Code: "BPEE", Title: "POKEMON EMER"},
		Version: "1.0.0",
	}
}

func testParty() *core.CollectionSnapshot {
	return &core.CollectionSnapshot{
		Kind:  core.KindParty,
		Frame: 30,
		Time:  time.Now(),
		Count: 2,
		Slots: []core.Slot{
			{Index: 0, Entry: &core.Entry{
				Mon:         core.Mon{Personality: 0x12345678, Species: 277, Nickname: "TREECKO", ChecksumValid: true},
				SpeciesName: "Treecko",
				MoveNames:   [4]string{"Pound", "Leer"},
				Level:       5,
				CurrentHP:   19,
				Stats:       core.StatBlock{HP: 20},
			}},
			{Index: 1, Reason: "bad checksum"},
		},
	}
}

func TestNew_Defaults(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.Equal(t, defaultFlushInterval, b.deps.FlushInterval)
	assert.NotNil(t, b.deps.Logger)
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInit_MigratesSchema(t *testing.T) {
	_, db := newTestBackend(t)
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestRecord_WithoutSession(t *testing.T) {
	b, _ := newTestBackend(t)

	assert.ErrorIs(t, b.RecordCollection(testParty()), ErrNoSession)
	assert.ErrorIs(t, b.RecordBattle(&core.BattleSnapshot{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordPlayer(&core.PlayerSnapshot{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
}

func TestStartSession_InsertsRow(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.StartSession(testSession()))
	assert.Equal(t, testSession().ID, b.SessionID())

	var s model.Session
	require.NoError(t, db.First(&s, "id = ?", testSession().ID).Error)
	assert.Equal(t, "BPEE", s.GameCode)
	assert.Nil(t, s.Ended)
}

func TestRecordCollection_QueuesUntilFlush(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(testParty()))
	assert.Equal(t, 1, b.queues.Collections.Len())

	var n int64
	db.Model(&model.CollectionSnapshot{}).Count(&n)
	assert.Zero(t, n)

	b.Flush()
	assert.Zero(t, b.queues.Collections.Len())

	var snap model.CollectionSnapshot
	require.NoError(t, db.Preload("Slots").First(&snap).Error)
	assert.Equal(t, core.KindParty, snap.Kind)
	assert.Equal(t, 1, snap.Filled)
	require.Len(t, snap.Slots, 2)
	assert.Equal(t, testSession().ID, snap.Slots[0].SessionID)
	assert.Equal(t, "Treecko", snap.Slots[0].SpeciesName)
	assert.JSONEq(t, `["Pound","Leer"]`, string(snap.Slots[0].Moves))
	assert.Equal(t, "bad checksum", snap.Slots[1].Reason)
}

func TestRecordBattleAndPlayer(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 10, Flags: 0x08, InBattle: true, Trainer: true}))
	require.NoError(t, b.RecordPlayer(&core.PlayerSnapshot{Name: "MAY", PlayHours: 1, PlayMinutes: 2, PlaySeconds: 3}))
	b.Flush()

	var ev model.BattleEvent
	require.NoError(t, db.First(&ev).Error)
	assert.True(t, ev.Trainer)
	assert.Equal(t, uint32(0x08), ev.Flags)

	var p model.PlayerSnapshot
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, "MAY", p.Name)
	assert.Equal(t, uint32(3723), p.PlayTime)
}

func TestEndSession_FlushesAndStampsEnd(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordCollection(testParty()))
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.SessionID())

	var s model.Session
	require.NoError(t, db.First(&s, "id = ?", testSession().ID).Error)
	assert.NotNil(t, s.Ended)

	var n int64
	db.Model(&model.SlotRecord{}).Count(&n)
	assert.Equal(t, int64(2), n)
}

func TestRecordPerformance_OutsideSession(t *testing.T) {
	b, db := newTestBackend(t)
	require.NoError(t, b.RecordPerformance(model.ReaderPerformance{Time: time.Now(), ReadsTotal: 10}))
	assert.Equal(t, 1, b.QueueLengths()["performance"])
	b.Flush()

	var p model.ReaderPerformance
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, uint64(10), p.ReadsTotal)
	assert.Empty(t, p.SessionID)
}

func TestClose_DrainsQueues(t *testing.T) {
	db := openTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 1}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var n int64
	db.Model(&model.BattleEvent{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestWriter_FlushesOnTicker(t *testing.T) {
	db := openTestDB(t)
	b := New(Dependencies{DB: db, FlushInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 1}))

	assert.Eventually(t, func() bool {
		return b.queues.Battles.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
