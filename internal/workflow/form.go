package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// State is the whole-form lifecycle position.
type State string

const (
	StateEditing      State = "editing"
	StateSubmitting   State = "submitting"
	StateSubmitted    State = "submitted"
	StateSubmitFailed State = "submit_failed"
)

var (
	ErrDescriptionTooLong = errors.New("description exceeds 1000 characters")
	ErrUnknownCategory    = errors.New("unknown hazard category")
	ErrUnknownHazardType  = errors.New("hazard type not offered for the selected category")
	ErrUnknownSeverity    = errors.New("unknown severity level")
	ErrAnonymousContact   = errors.New("contact details cannot be set on an anonymous report")
	ErrFileNotFound       = errors.New("file not attached to this report")
	ErrFormInvalid        = errors.New("report is missing required fields")
	ErrSubmitInFlight     = errors.New("a submission is already in progress")
	ErrAlreadySubmitted   = errors.New("report has already been submitted")
)

// Form owns a single hazard report draft and its lifecycle: field edits,
// draft persistence, and submission.
type Form struct {
	repo      DraftRepository
	submitter Submitter
	geocoder  domain.Geocoder
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	saveDelay time.Duration
	newID     func() string

	// storeMu orders writes to the draft store so a save that finishes after
	// a successful submit cannot resurrect the cleared draft.
	storeMu sync.Mutex

	mu         sync.Mutex
	draft      domain.Draft
	state      State
	generation uint64
	saving     int
	submitting bool
	lastSaved  time.Time
	receipt    *domain.Receipt
	submitErr  error

	loaded atomic.Bool
}

// NewForm creates a form holding an empty draft. Call LoadDraft to restore a
// previously saved one. geocoder may be nil.
func NewForm(repo DraftRepository, submitter Submitter, geocoder domain.Geocoder, clock clockwork.Clock, saveDelay time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Form {
	return &Form{
		repo:      repo,
		submitter: submitter,
		geocoder:  geocoder,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		saveDelay: saveDelay,
		newID:     uuid.NewString,
		draft:     domain.NewDraft(),
		state:     StateEditing,
	}
}

// CheckReadiness returns nil once the saved draft has been looked up.
func (f *Form) CheckReadiness(_ context.Context) error {
	if !f.loaded.Load() {
		return errors.New("saved draft has not been loaded yet")
	}
	return nil
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() domain.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

// State returns the current lifecycle state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Valid evaluates the submission predicate against the current draft.
func (f *Form) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.IsValid(f.draft)
}

// SetCategory selects a hazard category and always clears the hazard type.
func (f *Form) SetCategory(c domain.Category) error {
	if c != "" && !c.Valid() {
		return ErrUnknownCategory
	}
	return f.update(func(d *domain.Draft) error {
		d.HazardCategory = c
		d.HazardType = ""
		return nil
	})
}

// SetHazardType selects a hazard type from the current category's options.
// The empty string clears it.
func (f *Form) SetHazardType(hazardType string) error {
	return f.update(func(d *domain.Draft) error {
		if hazardType != "" && !domain.IsHazardType(d.HazardCategory, hazardType) {
			return ErrUnknownHazardType
		}
		d.HazardType = hazardType
		return nil
	})
}

// SetLocation replaces the location.
func (f *Form) SetLocation(loc domain.Location) error {
	return f.update(func(d *domain.Draft) error {
		d.Location = loc
		return nil
	})
}

// SetSeverity replaces the severity. The empty string clears it.
func (f *Form) SetSeverity(s domain.Severity) error {
	if s != "" && !s.Valid() {
		return ErrUnknownSeverity
	}
	return f.update(func(d *domain.Draft) error {
		d.Severity = s
		return nil
	})
}

// SetDescription replaces the description. Text longer than the cap is
// rejected and the draft is left unchanged.
func (f *Form) SetDescription(text string) error {
	if domain.DescriptionLength(text) > domain.MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return f.update(func(d *domain.Draft) error {
		d.Description = text
		return nil
	})
}

// SetFiles replaces the attached files.
func (f *Form) SetFiles(files []domain.MediaFile) error {
	return f.update(func(d *domain.Draft) error {
		d.Files = append(make([]domain.MediaFile, 0, len(files)), files...)
		return nil
	})
}

// AddFiles attaches the acceptable candidates and silently drops the rest.
// It returns the files that were attached.
func (f *Form) AddFiles(candidates []domain.CandidateFile) ([]domain.MediaFile, error) {
	accepted := f.filterMedia(candidates)
	err := f.update(func(d *domain.Draft) error {
		d.Files = append(d.Files, accepted...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ReplaceFiles swaps the attachment list for the acceptable candidates,
// dropping the rest as AddFiles does. It returns the files now attached.
func (f *Form) ReplaceFiles(candidates []domain.CandidateFile) ([]domain.MediaFile, error) {
	accepted := f.filterMedia(candidates)
	if err := f.SetFiles(accepted); err != nil {
		return nil, err
	}
	return accepted, nil
}

func (f *Form) filterMedia(candidates []domain.CandidateFile) []domain.MediaFile {
	accepted, rejected := domain.FilterMedia(candidates, f.newID)
	if rejected > 0 {
		f.metrics.MediaRejected.Add(float64(rejected))
		f.logger.Debug("dropped unsupported media", "rejected", rejected, "accepted", len(accepted))
	}
	return accepted
}

// RemoveFile detaches the file with the given id.
func (f *Form) RemoveFile(id string) error {
	return f.update(func(d *domain.Draft) error {
		kept := make([]domain.MediaFile, 0, len(d.Files))
		for _, file := range d.Files {
			if file.ID != id {
				kept = append(kept, file)
			}
		}
		if len(kept) == len(d.Files) {
			return ErrFileNotFound
		}
		d.Files = kept
		return nil
	})
}

// SetContactInfo replaces the contact details of a non-anonymous reporter.
func (f *Form) SetContactInfo(info domain.ContactInfo) error {
	return f.update(func(d *domain.Draft) error {
		if d.IsAnonymous && info != (domain.ContactInfo{}) {
			return ErrAnonymousContact
		}
		d.ContactInfo = info
		return nil
	})
}

// SetAnonymous toggles anonymity. Becoming anonymous clears the contact
// details; leaving anonymity keeps whatever they currently hold.
func (f *Form) SetAnonymous(anonymous bool) error {
	return f.update(func(d *domain.Draft) error {
		d.IsAnonymous = anonymous
		if anonymous {
			d.ContactInfo = domain.ContactInfo{}
		}
		return nil
	})
}

// DetectLocation asks the locator for the current position and, on success,
// stores it as the draft location. Failures leave the draft unchanged and
// are not retried; use domain.LocationMessage for the text to show.
func (f *Form) DetectLocation(ctx context.Context, locator domain.Locator) (domain.Location, error) {
	pos, err := locator.CurrentPosition(ctx)
	if err != nil {
		f.logger.Info("location detection failed", "error", err)
		return domain.Location{}, err
	}

	loc := domain.LocationFromPosition(pos)
	loc = domain.ResolveAddress(ctx, loc, pos, f.geocoder, f.logger)

	if err := f.SetLocation(loc); err != nil {
		return domain.Location{}, err
	}
	return loc, nil
}

// Reset discards the in-memory form, as when the reporter navigates away,
// and restores whatever draft is still persisted.
func (f *Form) Reset(ctx context.Context) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.draft = domain.NewDraft()
	f.state = StateEditing
	f.lastSaved = time.Time{}
	f.receipt = nil
	f.submitErr = nil
	f.mu.Unlock()

	f.LoadDraft(ctx)
	return nil
}

// update applies fn to a copy of the draft and commits it only if fn succeeds.
// Editing after a failed submission returns the form to the editing state.
func (f *Form) update(fn func(d *domain.Draft) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitted {
		return ErrAlreadySubmitted
	}

	next := f.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	f.draft = next

	if f.state == StateSubmitFailed {
		f.state = StateEditing
		f.submitErr = nil
	}
	return nil
}
