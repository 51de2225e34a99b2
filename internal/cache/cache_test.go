package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sb1 = "saveBlock1"
	sb2 = "saveBlock2"
)

func TestPointerCache_Lifetime(t *testing.T) {
	tests := []struct {
		name   string
		stored uint64
		frame  uint64
		hit    bool
	}{
		{"same frame", 10, 10, true},
		{"last frame of ttl", 10, 309, true},
		{"expired", 10, 310, false},
		{"frame counter went back", 10, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPointerCache(300)
			c.Put(sb1, 0x02025A00, tt.stored)

			got, ok := c.Get(sb1, tt.frame)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.Equal(t, uint32(0x02025A00), got)
			}
		})
	}
}

func TestPointerCache_Unknown(t *testing.T) {
	c := NewPointerCache(300)
	_, ok := c.Get(sb2, 0)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestPointerCache_PutDetectsRelocation(t *testing.T) {
	c := NewPointerCache(300)

	assert.False(t, c.Put(sb1, 0x02025A00, 0), "first resolution")
	assert.False(t, c.Put(sb1, 0x02025A00, 300), "same block re-read after expiry")
	assert.True(t, c.Put(sb1, 0x02025B00, 600), "block moved")
	assert.False(t, c.Put(sb2, 0x02024E00, 600), "other pointer")

	got, ok := c.Get(sb1, 600)
	require.True(t, ok)
	assert.Equal(t, uint32(0x02025B00), got)
	assert.Equal(t, 1, c.Stats().Relocations)
}

func TestPointerCache_Reset(t *testing.T) {
	c := NewPointerCache(300)
	c.Put(sb1, 0x02025A00, 0)
	c.Put(sb2, 0x02024E00, 0)
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Zero(t, c.Len())
	assert.False(t, c.Put(sb1, 0x02025B00, 0), "nothing to compare with after reset")

	_, ok := c.Get(sb1, 0)
	assert.True(t, ok)
}

func TestPointerCache_Stats(t *testing.T) {
	c := NewPointerCache(300)

	c.Get(sb1, 0)
	c.Put(sb1, 0x02025A00, 0)
	c.Get(sb1, 1)
	c.Get(sb1, 2)
	c.Get(sb1, 400)
	c.Put(sb1, 0x02025C00, 400)
	c.Reset()

	assert.Equal(t, PointerStats{Entries: 0, Hits: 2, Misses: 2, Resets: 1, Relocations: 1}, c.Stats())
}

func TestPointerCache_Concurrent(t *testing.T) {
	c := NewPointerCache(300)
	var wg sync.WaitGroup

	for i := range uint64(100) {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Put(sb1, 0x02025A00, i)
		}()
		go func() {
			defer wg.Done()
			c.Get(sb1, i)
		}()
	}
	wg.Wait()

	st := c.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 100, st.Hits+st.Misses)
	assert.Zero(t, st.Relocations)
}

func TestSafeCounter_Concurrent(t *testing.T) {
	var c SafeCounter
	var wg sync.WaitGroup
	for range 1000 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, c.Value())
}
