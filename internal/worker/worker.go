// Package worker runs the scheduled housekeeping jobs.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/session"
)

// evictionSpec is how often idle sessions are swept.
const evictionSpec = "@every 5m"

// refreshTimeout bounds one history download.
const refreshTimeout = time.Minute

// Worker handles scheduled tasks
type Worker struct {
	sessions    *session.Manager
	history     *history.Service
	refreshSpec string
	cron        *cron.Cron
	log         logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	boot   sync.WaitGroup
}

// NewWorker creates a new worker
func NewWorker(sessions *session.Manager, hist *history.Service, refreshSpec string, log logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		sessions:    sessions,
		history:     hist,
		refreshSpec: refreshSpec,
		cron:        cron.New(),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start schedules session eviction and, when a source is configured, the
// history refresh. The first history load runs immediately in the background.
func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(evictionSpec, w.EvictSessions); err != nil {
		return fmt.Errorf("schedule session eviction: %w", err)
	}

	if w.history != nil && w.history.Configured() {
		if _, err := w.cron.AddFunc(w.refreshSpec, w.RefreshHistory); err != nil {
			return fmt.Errorf("schedule history refresh %q: %w", w.refreshSpec, err)
		}
		w.boot.Add(1)
		go func() {
			defer w.boot.Done()
			w.RefreshHistory()
		}()
		w.log.Info("Scheduled history refresh", logger.String("spec", w.refreshSpec))
	}

	w.cron.Start()
	w.log.Info("Worker started")
	return nil
}

// Stop cancels in-flight refreshes, then waits for them and for running cron jobs.
func (w *Worker) Stop() {
	w.cancel()
	cronDone := w.cron.Stop()
	w.boot.Wait()
	<-cronDone.Done()
	w.log.Info("Worker stopped")
}

// EvictSessions drops idle sessions.
func (w *Worker) EvictSessions() {
	if n := w.sessions.EvictIdle(); n > 0 {
		w.log.Info("Evicted idle sessions", logger.Int("evicted", n), logger.Int("remaining", w.sessions.Count()))
	}
}

// RefreshHistory reloads the historical dataset.
func (w *Worker) RefreshHistory() {
	ctx, cancel := context.WithTimeout(w.ctx, refreshTimeout)
	defer cancel()
	if err := w.history.Refresh(ctx); err != nil {
		w.log.Warn("Scheduled history refresh failed", logger.Error(err))
	}
}
