package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Save triggers, used as metric labels.
const (
	TriggerManual   = "manual"
	TriggerAutosave = "autosave"
)

// DraftRepository persists a single draft slot. Implementations store the
// draft body and its save time under two fixed keys and overwrite both on
// every save.
type DraftRepository interface {
	// Load returns the saved draft, or false if none is stored. Undecodable
	// drafts are reported as an error wrapping domain.ErrCorruptDraft.
	Load(ctx context.Context) (domain.SavedDraft, bool, error)
	Save(ctx context.Context, draft domain.Draft, savedAt time.Time) error
	Clear(ctx context.Context) error
}

// LoadDraft restores the persisted draft, if any, and reports whether one was
// restored. Load failures of any kind are logged and treated as no draft.
func (f *Form) LoadDraft(ctx context.Context) bool {
	defer f.loaded.Store(true)

	saved, ok, err := f.repo.Load(ctx)
	switch {
	case err != nil:
		f.metrics.DraftLoads.WithLabelValues("error").Inc()
		if errors.Is(err, domain.ErrCorruptDraft) {
			f.logger.Warn("discarding unreadable saved draft", "error", err)
		} else {
			f.logger.Error("load saved draft failed", "error", err)
		}
		return false
	case !ok:
		f.metrics.DraftLoads.WithLabelValues("none").Inc()
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing || f.submitting {
		return false
	}
	f.draft = saved.Draft.Clone()
	if f.draft.Files == nil {
		f.draft.Files = []domain.MediaFile{}
	}
	f.lastSaved = saved.SavedAt
	f.metrics.DraftLoads.WithLabelValues("restored").Inc()
	f.logger.Info("restored saved draft", "saved_at", saved.SavedAt, "hazard_type", saved.Draft.HazardType)
	return true
}

// SaveDraft persists the current draft. Edits made while the save is in
// flight are picked up by the next save. A save still waiting out its delay
// when a submission succeeds writes nothing, so the cleared draft stays gone.
func (f *Form) SaveDraft(ctx context.Context) error {
	return f.save(ctx, TriggerManual)
}

// AutoSave persists the draft if it has a hazard type or description. It
// reports whether a save was attempted. Validity is not required.
func (f *Form) AutoSave(ctx context.Context) (bool, error) {
	f.mu.Lock()
	worthSaving := f.state != StateSubmitted && f.draft.HasContent()
	f.mu.Unlock()

	if !worthSaving {
		f.metrics.AutosaveSkipped.Inc()
		return false, nil
	}
	return true, f.save(ctx, TriggerAutosave)
}

func (f *Form) save(ctx context.Context, trigger string) error {
	start := f.clock.Now()

	f.mu.Lock()
	if f.state == StateSubmitted {
		f.mu.Unlock()
		return ErrAlreadySubmitted
	}
	draft := f.draft.Clone()
	gen := f.generation
	f.saving++
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.saving--
		f.mu.Unlock()
	}()

	if err := sleep(ctx, f.clock, f.saveDelay); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}

	f.storeMu.Lock()
	defer f.storeMu.Unlock()

	f.mu.Lock()
	stale := f.generation != gen
	f.mu.Unlock()
	if stale {
		f.logger.Debug("dropping stale draft save", "trigger", trigger)
		return nil
	}

	savedAt := f.clock.Now()
	if err := f.repo.Save(ctx, draft, savedAt); err != nil {
		f.metrics.DraftSaveErrors.WithLabelValues(trigger).Inc()
		f.logger.Error("save draft failed", "trigger", trigger, "error", err)
		return fmt.Errorf("save draft: %w", err)
	}

	f.mu.Lock()
	if savedAt.After(f.lastSaved) {
		f.lastSaved = savedAt
	}
	f.mu.Unlock()

	f.metrics.DraftSaves.WithLabelValues(trigger).Inc()
	f.metrics.DraftSaveLatency.Observe(f.clock.Since(start).Seconds())
	f.logger.Debug("draft saved", "trigger", trigger, "saved_at", savedAt)
	return nil
}

// sleep waits for d on clock or until ctx is done.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
