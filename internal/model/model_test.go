package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tabler interface{ TableName() string }

func TestDatabaseModels_Tables(t *testing.T) {
	var got []string
	for _, m := range DatabaseModels {
		tm, ok := m.(tabler)
		if !assert.True(t, ok, "%T has no TableName", m) {
			continue
		}
		got = append(got, tm.TableName())
	}

	assert.ElementsMatch(t, []string{
		"sessions",
		"collection_snapshots",
		"slot_records",
		"battle_events",
		"player_snapshots",
		"reader_performances",
	}, got)
}
