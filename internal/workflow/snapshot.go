package workflow

import (
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// Snapshot is a consistent view of the form for rendering.
type Snapshot struct {
	Draft          domain.Draft         `json:"draft"`
	State          State                `json:"state"`
	Valid          bool                 `json:"valid"`
	Missing        []domain.Requirement `json:"missing"`
	Saving         bool                 `json:"saving"`
	Submitting     bool                 `json:"submitting"`
	LastSaved      *time.Time           `json:"lastSaved,omitempty"`
	LastSavedLabel string               `json:"lastSavedLabel,omitempty"`
	Receipt        *domain.Receipt      `json:"receipt,omitempty"`
	SubmitError    string               `json:"submitError,omitempty"`
}

// Snapshot captures the draft together with its derived status.
func (f *Form) Snapshot() Snapshot {
	now := f.clock.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	missing := domain.Validate(f.draft)
	s := Snapshot{
		Draft:      f.draft.Clone(),
		State:      f.state,
		Valid:      len(missing) == 0,
		Missing:    missing,
		Saving:     f.saving > 0,
		Submitting: f.submitting,
	}
	if !f.lastSaved.IsZero() {
		saved := f.lastSaved
		s.LastSaved = &saved
		s.LastSavedLabel = domain.SavedLabel(now, saved)
	}
	if f.receipt != nil {
		r := *f.receipt
		s.Receipt = &r
	}
	if f.submitErr != nil {
		s.SubmitError = f.submitErr.Error()
	}
	return s
}
