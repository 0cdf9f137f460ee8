package view

import (
	"context"
	"errors"

	"github.com/Sternrassler/artwork-table/pkg/selection"
)

// DialogState is the state of the bulk selection dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
)

func (s DialogState) String() string {
	switch s {
	case DialogClosed:
		return "closed"
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

var (
	// ErrDialogNotOpen is returned when submitting a closed dialog
	ErrDialogNotOpen = errors.New("bulk selection dialog is not open")

	// ErrSubmitInProgress is returned when a submission is already running
	ErrSubmitInProgress = errors.New("bulk selection already in progress")
)

// Dialog returns the dialog state and the error of the last failed submit.
func (t *Table) Dialog() (DialogState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dialog, t.dialogErr
}

// OpenDialog opens the bulk selection dialog. It does nothing while a
// submission is running.
func (t *Table) OpenDialog() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dialog == DialogSubmitting {
		return
	}
	t.dialog = DialogOpen
	t.dialogErr = nil
}

// CloseDialog closes the dialog and abandons a running submission. A
// submission cancelled here never applies once the dialog reads as closed.
func (t *Table) CloseDialog() {
	t.mu.Lock()
	submitting := t.dialog == DialogSubmitting
	t.mu.Unlock()

	// The bulk selector calls back into t while holding its own lock, so it
	// is cancelled without holding t.mu.
	if submitting {
		t.bulk.Cancel()
	}

	t.mu.Lock()
	t.dialog = DialogClosed
	t.dialogErr = nil
	t.mu.Unlock()
}

// SubmitTopN selects the first n records. The dialog closes on success and
// stays open with the error on failure.
func (t *Table) SubmitTopN(ctx context.Context, n int) (int, error) {
	t.mu.Lock()
	switch t.dialog {
	case DialogClosed:
		t.mu.Unlock()
		return 0, ErrDialogNotOpen
	case DialogSubmitting:
		t.mu.Unlock()
		return 0, ErrSubmitInProgress
	}
	if n <= 0 {
		t.dialogErr = selection.ErrInvalidCount
		t.mu.Unlock()
		return 0, selection.ErrInvalidCount
	}
	t.dialog = DialogSubmitting
	t.dialogErr = nil
	t.submitSeq++
	submit := t.submitSeq
	t.mu.Unlock()

	selected, err := t.bulk.SelectTopN(ctx, n)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dialog != DialogSubmitting || t.submitSeq != submit || errors.Is(err, selection.ErrSuperseded) {
		// closed, or being closed
		return selected, err
	}
	if err != nil {
		t.dialog = DialogOpen
		t.dialogErr = err
		return 0, err
	}
	t.dialog = DialogClosed
	return selected, nil
}
