package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Submitter hands a finalized report to the ingestion backend. The returned
// receipt is authoritative.
type Submitter interface {
	Submit(ctx context.Context, draft domain.Draft) (domain.Receipt, error)
}

// SimulatedSubmitter stands in for an ingestion backend: it waits a fixed
// delay and issues a report id derived from the clock. It never fails.
type SimulatedSubmitter struct {
	clock clockwork.Clock
	delay time.Duration
}

// NewSimulatedSubmitter creates a submitter that answers after delay.
func NewSimulatedSubmitter(clock clockwork.Clock, delay time.Duration) *SimulatedSubmitter {
	return &SimulatedSubmitter{clock: clock, delay: delay}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, _ domain.Draft) (domain.Receipt, error) {
	if err := sleep(ctx, s.clock, s.delay); err != nil {
		return domain.Receipt{}, err
	}
	now := s.clock.Now()
	return domain.Receipt{ReportID: domain.NewReportID(now), CreatedAt: now}, nil
}

// Submit sends the draft to the ingestion backend if it satisfies the
// submission predicate. An invalid draft, an outstanding submission, or an
// already submitted form leave the state untouched and return an error.
//
// On success the persisted draft is cleared and the form becomes terminal.
// On failure the form moves to StateSubmitFailed with every field intact.
func (f *Form) Submit(ctx context.Context) (domain.Receipt, error) {
	f.mu.Lock()
	switch {
	case f.state == StateSubmitted:
		f.mu.Unlock()
		return domain.Receipt{}, ErrAlreadySubmitted
	case f.submitting:
		f.mu.Unlock()
		return domain.Receipt{}, ErrSubmitInFlight
	case !domain.IsValid(f.draft):
		f.mu.Unlock()
		f.metrics.Submissions.WithLabelValues("rejected").Inc()
		return domain.Receipt{}, ErrFormInvalid
	}
	draft := f.draft.Clone()
	f.submitting = true
	f.state = StateSubmitting
	f.submitErr = nil
	f.mu.Unlock()

	f.metrics.SubmitInProgress.Set(1)
	defer f.metrics.SubmitInProgress.Set(0)

	start := f.clock.Now()
	receipt, err := f.submitter.Submit(ctx, draft)
	f.metrics.SubmitDuration.Observe(f.clock.Since(start).Seconds())

	if err != nil {
		f.mu.Lock()
		f.submitting = false
		f.state = StateSubmitFailed
		f.submitErr = err
		f.mu.Unlock()

		f.metrics.Submissions.WithLabelValues("failed").Inc()
		f.logger.Error("submit report failed", "hazard_type", draft.HazardType, "error", err)
		return domain.Receipt{}, fmt.Errorf("submit report: %w", err)
	}

	f.finishSubmit(ctx, receipt)

	f.metrics.Submissions.WithLabelValues("accepted").Inc()
	f.logger.Info("report submitted",
		"report_id", receipt.ReportID,
		"hazard_type", draft.HazardType,
		"severity", draft.Severity,
		"anonymous", draft.IsAnonymous,
		"files", len(draft.Files),
	)
	return receipt, nil
}

// finishSubmit clears the persisted draft and records the receipt. The
// report is already accepted, so a failed clear is only logged.
func (f *Form) finishSubmit(ctx context.Context, receipt domain.Receipt) {
	f.storeMu.Lock()
	defer f.storeMu.Unlock()

	if err := f.repo.Clear(context.WithoutCancel(ctx)); err != nil {
		f.logger.Error("clear saved draft failed", "report_id", receipt.ReportID, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.submitting = false
	f.state = StateSubmitted
	f.receipt = &receipt
	f.lastSaved = time.Time{}
}
