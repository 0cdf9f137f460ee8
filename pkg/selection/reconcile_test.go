package selection

import (
	"testing"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/stretchr/testify/assert"
)

func records(ids ...int64) []artwork.Record {
	out := make([]artwork.Record, len(ids))
	for i, id := range ids {
		out[i] = artwork.Record{ID: id, Title: "Artwork"}
	}
	return out
}

func TestReconcile_CrossPageExample(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1, 5))

	delta := Reconcile(s, records(1, 2, 3), infos(2))

	assert.Equal(t, infos(2), delta.Selected)
	assert.Equal(t, []int64{1}, delta.Deselected)
	assert.ElementsMatch(t, []int64{2, 5}, s.IDs())
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name           string
		initial        []int64
		current        []int64
		reported       []int64
		want           []int64
		wantSelected   int
		wantDeselected int
	}{
		{
			name:     "select on empty store",
			current:  []int64{1, 2, 3},
			reported: []int64{1, 3},
			want:     []int64{1, 3},

			wantSelected: 2,
		},
		{
			name:     "no change",
			initial:  []int64{1, 2},
			current:  []int64{1, 2, 3},
			reported: []int64{1, 2},
			want:     []int64{1, 2},
		},
		{
			name:           "clear current page keeps other pages",
			initial:        []int64{1, 2, 11, 12},
			current:        []int64{1, 2, 3},
			reported:       nil,
			want:           []int64{11, 12},
			wantDeselected: 2,
		},
		{
			name:     "ids off the current page are untouched",
			initial:  []int64{11, 21},
			current:  []int64{1, 2, 3},
			reported: []int64{2},
			want:     []int64{11, 21, 2},

			wantSelected: 1,
		},
		{
			name:     "duplicate reported ids",
			current:  []int64{1, 2},
			reported: []int64{2, 2},
			want:     []int64{2},

			wantSelected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SelectRows(infos(tt.initial...))

			delta := Reconcile(s, records(tt.current...), infos(tt.reported...))

			assert.Equal(t, tt.want, s.IDs())
			assert.Len(t, delta.Selected, tt.wantSelected)
			assert.Len(t, delta.Deselected, tt.wantDeselected)
			assertPaired(t, s)
		})
	}
}

func TestReconcile_EmptyDelta(t *testing.T) {
	s := NewStore()
	s.SelectRows(infos(1))

	delta := Reconcile(s, records(1, 2), infos(1))

	assert.True(t, delta.Empty())
}

// Every selected id that is not on the current page must survive any
// reconciliation of the current page.
func TestReconcile_CrossPageInvariant(t *testing.T) {
	current := []int64{1, 2, 3, 4, 5}
	offPage := []int64{11, 12, 27}

	reports := [][]int64{nil, {1}, {2, 4}, {1, 2, 3, 4, 5}, {5}}
	for _, reported := range reports {
		s := NewStore()
		s.SelectRows(infos(offPage...))
		s.SelectRows(infos(1, 3))

		Reconcile(s, records(current...), infos(reported...))

		for _, id := range offPage {
			assert.True(t, s.IsSelected(id), "off-page id %d dropped for report %v", id, reported)
		}
		for _, id := range current {
			assert.Equal(t, contains(reported, id), s.IsSelected(id), "id %d for report %v", id, reported)
		}
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
