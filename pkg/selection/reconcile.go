package selection

import "github.com/Sternrassler/artwork-table/pkg/artwork"

// Delta is the change Reconcile applied to a store.
type Delta struct {
	Selected   []artwork.MinimalRecordInfo
	Deselected []int64
}

// Empty reports whether the delta changed nothing.
func (d Delta) Empty() bool {
	return len(d.Selected) == 0 && len(d.Deselected) == 0
}

// Reconcile applies the selection a table reports for its current page.
//
// Reported records that are not yet selected are added. Records of the
// current page that are selected but no longer reported are removed.
// Selected ids that are not on the current page are left alone.
func Reconcile(store *Store, current []artwork.Record, reported []artwork.MinimalRecordInfo) Delta {
	before := store.Snapshot()

	reportedIDs := make(map[int64]struct{}, len(reported))
	var delta Delta
	for _, row := range reported {
		if _, dup := reportedIDs[row.ID]; dup {
			continue
		}
		reportedIDs[row.ID] = struct{}{}
		if !before.Contains(row.ID) {
			delta.Selected = append(delta.Selected, row)
		}
	}

	for _, rec := range current {
		if !before.Contains(rec.ID) {
			continue
		}
		if _, ok := reportedIDs[rec.ID]; !ok {
			delta.Deselected = append(delta.Deselected, rec.ID)
		}
	}

	if len(delta.Selected) > 0 {
		store.SelectRows(delta.Selected)
	}
	if len(delta.Deselected) > 0 {
		store.DeselectRows(delta.Deselected)
	}
	return delta
}
