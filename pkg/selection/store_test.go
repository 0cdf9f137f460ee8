package selection

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func info(id int64) artwork.MinimalRecordInfo {
	return artwork.MinimalRecordInfo{ID: id, Title: "Artwork"}
}

func infos(ids ...int64) []artwork.MinimalRecordInfo {
	out := make([]artwork.MinimalRecordInfo, len(ids))
	for i, id := range ids {
		out[i] = info(id)
	}
	return out
}

// assertPaired checks that the id set and the info map have the same keys.
func assertPaired(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	require.Len(t, snap.Info, len(snap.IDs))
	for id := range snap.IDs {
		_, ok := snap.Info[id]
		assert.True(t, ok, "id %d selected without info", id)
	}
	assert.Len(t, s.IDs(), len(snap.IDs))
}

func TestStore_Empty(t *testing.T) {
	s := NewStore()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.IDs())
	assert.Empty(t, s.Items())
	assert.False(t, s.IsSelected(1))
	assertPaired(t, s)
}

func TestStore_SelectRows(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(3, 1, 2))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int64{3, 1, 2}, s.IDs())
	assert.True(t, s.IsSelected(1))

	got, ok := s.Info(2)
	require.True(t, ok)
	assert.Equal(t, info(2), got)
	assertPaired(t, s)
}

func TestStore_SelectRows_Idempotent(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 2))
	first := s.Snapshot()

	s.SelectRows(infos(1, 2))

	assert.Equal(t, first, s.Snapshot())
	assert.Equal(t, []int64{1, 2}, s.IDs())
}

func TestStore_SelectRows_OverwritesInfoKeepsPosition(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 2, 3))
	s.SelectRows([]artwork.MinimalRecordInfo{{ID: 1, Title: "Renamed"}})

	got, ok := s.Info(1)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, []int64{1, 2, 3}, s.IDs())
	assert.Equal(t, "Renamed", s.Items()[0].Title)
}

func TestStore_DeselectRows(t *testing.T) {
	tests := []struct {
		name     string
		initial  []int64
		deselect []int64
		want     []int64
	}{
		{"removes listed ids", []int64{1, 2, 3}, []int64{2}, []int64{1, 3}},
		{"absent id is a no-op", []int64{1, 2}, []int64{99}, []int64{1, 2}},
		{"mixed present and absent", []int64{1, 2, 3}, []int64{3, 42}, []int64{1, 2}},
		{"empty list", []int64{1}, nil, []int64{1}},
		{"all", []int64{1, 2}, []int64{2, 1}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SelectRows(infos(tt.initial...))
			s.DeselectRows(tt.deselect)

			assert.Equal(t, tt.want, s.IDs())
			assertPaired(t, s)
		})
	}
}

func TestStore_DeselectRows_Idempotent(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 2, 3))

	s.DeselectRows([]int64{2})
	first := s.Snapshot()
	s.DeselectRows([]int64{2})

	assert.Equal(t, first, s.Snapshot())
}

func TestStore_SelectThenDeselectRoundTrip(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(10, 20))
	before := s.Snapshot()

	s.SelectRows(infos(5, 6))
	s.DeselectRows([]int64{5, 6})

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, []int64{10, 20}, s.IDs())
}

func TestStore_ReselectAfterDeselectMovesToEnd(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 2, 3))
	s.DeselectRows([]int64{1})
	s.SelectRows(infos(1))

	assert.Equal(t, []int64{2, 3, 1}, s.IDs())
}

func TestStore_PairInvariantRandomSequence(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		ids := make([]int64, rng.Intn(5))
		for j := range ids {
			ids[j] = int64(rng.Intn(30))
		}
		if rng.Intn(2) == 0 {
			s.SelectRows(infos(ids...))
		} else {
			s.DeselectRows(ids)
		}
		assertPaired(t, s)
	}
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := int64((w*31 + i) % 50)
				if i%3 == 0 {
					s.DeselectRows([]int64{id})
				} else {
					s.SelectRows(infos(id))
				}
				_ = s.IsSelected(id)
				_ = s.Items()
			}
		}(w)
	}
	wg.Wait()

	assertPaired(t, s)
	assert.LessOrEqual(t, s.Len(), 50)
}

func TestStore_ItemsAreCopies(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 2))

	ids := s.IDs()
	ids[0] = 99
	items := s.Items()
	items[0].Title = "changed"

	assert.Equal(t, []int64{1, 2}, s.IDs())
	got, _ := s.Info(1)
	assert.Equal(t, "Artwork", got.Title)
}
