package selection

import (
	"sync"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var selectionSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "artwork_selection_size",
	Help: "Number of records in the most recently changed selection",
})

// Store is the selection state of one table view.
// The id set and the info map always have the same keys.
type Store struct {
	mu    sync.RWMutex
	ids   map[int64]struct{}
	info  map[int64]artwork.MinimalRecordInfo
	order []int64 // first-insertion display order
}

// NewStore creates an empty selection.
func NewStore() *Store {
	return &Store{
		ids:  make(map[int64]struct{}),
		info: make(map[int64]artwork.MinimalRecordInfo),
	}
}

// SelectRows adds every record to the selection. Re-selecting an id
// overwrites its info but keeps its display position.
func (s *Store) SelectRows(rows []artwork.MinimalRecordInfo) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, ok := s.ids[row.ID]; !ok {
			s.ids[row.ID] = struct{}{}
			s.order = append(s.order, row.ID)
		}
		s.info[row.ID] = row
	}
	selectionSize.Set(float64(len(s.ids)))
}

// DeselectRows removes ids from the selection. Unknown ids are ignored.
func (s *Store) DeselectRows(ids []int64) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			continue
		}
		delete(s.ids, id)
		delete(s.info, id)
		removed++
	}
	if removed == 0 {
		return
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.ids[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	selectionSize.Set(float64(len(s.ids)))
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Info returns the stored projection for id.
func (s *Store) Info(id int64) (artwork.MinimalRecordInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.info[id]
	return info, ok
}

// Len returns the number of selected records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in display order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Items returns the selected records in display order.
func (s *Store) Items() []artwork.MinimalRecordInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]artwork.MinimalRecordInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.info[id])
	}
	return out
}

// Snapshot is a consistent copy of the selection.
type Snapshot struct {
	IDs  map[int64]struct{}
	Info map[int64]artwork.MinimalRecordInfo
}

// Contains reports whether id is in the snapshot.
func (s Snapshot) Contains(id int64) bool {
	_, ok := s.IDs[id]
	return ok
}

// Snapshot copies both halves of the selection under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		IDs:  make(map[int64]struct{}, len(s.ids)),
		Info: make(map[int64]artwork.MinimalRecordInfo, len(s.info)),
	}
	for id := range s.ids {
		snap.IDs[id] = struct{}{}
	}
	for id, info := range s.info {
		snap.Info[id] = info
	}
	return snap
}
