package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// AutoSaver periodically persists a form's draft while it is running.
type AutoSaver struct {
	form     *Form
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoSaver creates a stopped autosaver for form.
func NewAutoSaver(form *Form, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *AutoSaver {
	return &AutoSaver{
		form:     form,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Start launches the autosave loop. It is a no-op if already running. The
// loop ends when ctx is cancelled or Stop is called.
func (a *AutoSaver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

// Stop cancels the loop, including any save in flight, and waits for it to exit.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *AutoSaver) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	a.logger.Info("autosave started", "interval", a.interval)
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autosave stopped")
			return
		case <-ticker.Chan():
			if _, err := a.form.AutoSave(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("autosave failed", "error", err)
			}
		}
	}
}
