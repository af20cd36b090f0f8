// Package scheduler runs periodic document maintenance. Today that is the
// overdue sweep, which moves sent invoices past their due date to overdue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/docflow/internal/clock"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	obsmetrics "github.com/smallbiznis/docflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobOverdueSweep = "overdue_sweep"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	Documents documentdomain.Service
	Clock     clock.Clock
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
	Locker    Locker                       `optional:"true"`
	Config    Config                       `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	documents documentdomain.Service
	metrics   *obsmetrics.SchedulerMetrics
	locker    Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Documents == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		documents: p.Documents,
		metrics:   p.Metrics,
		locker:    p.Locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	s.metrics.IncJobRun(name)

	processed, err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.metrics.AddDocumentsProcessed(name, processed)
	if processed > 0 {
		log.Info("job finished", zap.Int("processed", processed))
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout: the next tick picks up where this one stopped.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.locker == nil {
		return s.runJob(ctx, JobOverdueSweep, s.cfg.JobTimeout, s.OverdueSweepJob)
	}

	token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.JobTimeout)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", JobOverdueSweep, err)
	}
	if !ok {
		s.log.Debug("sweep held by another instance", zap.String("job", JobOverdueSweep))
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
			s.log.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	return s.runJob(ctx, JobOverdueSweep, s.cfg.JobTimeout, s.OverdueSweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		s.metrics.ObserveRunLoopLag(time.Since(nextRun))
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// OverdueSweepJob marks every unpaid invoice whose due date has passed as
// overdue. Documents that changed underneath the sweep are skipped.
func (s *Scheduler) OverdueSweepJob(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	invoice := documentdomain.TypeInvoice
	var (
		processed int
		jobErr    error
	)

	for _, status := range []documentdomain.Status{documentdomain.StatusSent, documentdomain.StatusPartiallyPaid} {
		status := status
		pageToken := ""
		for {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			page, err := s.documents.List(ctx, documentdomain.ListRequest{
				DocumentType: &invoice,
				Status:       &status,
				PageToken:    pageToken,
				PageSize:     s.cfg.BatchSize,
			})
			if err != nil {
				return processed, err
			}

			for _, doc := range page.Documents {
				if doc.DueDate == nil || !now.After(*doc.DueDate) {
					continue
				}
				_, err := s.documents.MarkOverdue(ctx, doc.ID.String())
				switch {
				case err == nil:
					processed++
				case errors.Is(err, documentdomain.ErrIllegalTransition),
					errors.Is(err, documentdomain.ErrVersionConflict),
					errors.Is(err, documentdomain.ErrDocumentNotFound):
					s.log.Debug("skipping document changed during sweep",
						zap.String("document_id", doc.ID.String()), zap.Error(err))
				default:
					s.log.Error("failed to mark document overdue",
						zap.String("document_id", doc.ID.String()), zap.Error(err))
					jobErr = errors.Join(jobErr, err)
				}
			}

			if !page.HasMore {
				break
			}
			pageToken = page.NextPageToken
		}
	}

	return processed, jobErr
}
