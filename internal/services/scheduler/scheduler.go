// Package scheduler периодически подтверждает зависшие pending-платежи:
// каждые Interval захватывает платежи старше Threshold и подтверждает их,
// что активирует премиум владельцу. Просроченные по expires_at платежи
// переводятся в expired.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
	"github.com/magabrotheeeer/credit-gate/internal/metrics"
	"github.com/magabrotheeeer/credit-gate/internal/models"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
)

const defaultBatchSize = 100

// Claimer захватывает зависшие pending-платежи на время аренды.
type Claimer interface {
	ClaimStalePending(ctx context.Context, createdBefore, now time.Time, lease time.Duration, limit int) ([]*models.Payment, error)
}

// Confirmer подтверждает платёж.
type Confirmer interface {
	Confirm(ctx context.Context, id, source string) (*payment.Confirmation, error)
}

// Pruner выполняет обслуживание записей антифрода.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Config параметры планировщика.
type Config struct {
	Interval   time.Duration
	Threshold  time.Duration
	ClaimLease time.Duration
	BatchSize  int
}

// Report итог одного тика.
type Report struct {
	Claimed   int
	Completed int
	Expired   int
	Failed    int
	Skipped   bool
}

// Scheduler AutoConfirmationScheduler.
type Scheduler struct {
	claimer   Claimer
	confirmer Confirmer
	pruner    Pruner
	metrics   *metrics.Metrics
	log       *slog.Logger
	cfg       Config
	now       func() time.Time
	running   atomic.Bool
}

// New создаёт планировщик. pruner может быть nil.
func New(claimer Claimer, confirmer Confirmer, pruner Pruner, m *metrics.Metrics, log *slog.Logger, cfg Config) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = time.Minute
	}
	return &Scheduler{
		claimer:   claimer,
		confirmer: confirmer,
		pruner:    pruner,
		metrics:   m,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run запускает тики каждые Interval до отмены ctx. Тик выполняется в
// отдельной горутине; если предыдущий ещё идёт, новый пропускается.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("auto-confirmation scheduler started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("threshold", s.cfg.Threshold))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("auto-confirmation scheduler stopped")
			return
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Tick выполняет один проход. Ошибки логируются и не прерывают работу:
// следующий тик повторит попытку.
func (s *Scheduler) Tick(ctx context.Context) Report {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous auto-confirmation tick still running, skipping")
		s.metrics.SchedulerTicks.WithLabelValues("skipped").Inc()
		return Report{Skipped: true}
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() {
		s.metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ClaimLease)
	defer cancel()

	report := s.confirmStale(ctx)
	s.prune(ctx)

	result := "ok"
	if report.Failed > 0 {
		result = "error"
	}
	s.metrics.SchedulerTicks.WithLabelValues(result).Inc()
	return report
}

func (s *Scheduler) confirmStale(ctx context.Context) Report {
	var report Report
	now := s.now()
	claimed, err := s.claimer.ClaimStalePending(ctx, now.Add(-s.cfg.Threshold), now, s.cfg.ClaimLease, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("failed to claim stale payments", sl.Err(err))
		report.Failed++
		return report
	}
	report.Claimed = len(claimed)
	if len(claimed) == 0 {
		return report
	}

	for _, p := range claimed {
		c, err := s.confirmer.Confirm(ctx, p.ID, payment.SourceScheduler)
		if err != nil {
			report.Failed++
			s.log.Error("failed to auto-confirm payment",
				slog.String("payment_id", p.ID),
				sl.Err(err))
			continue
		}
		switch c.Payment.Status {
		case models.PaymentCompleted:
			if c.Transitioned {
				report.Completed++
			}
		case models.PaymentExpired:
			report.Expired++
		}
	}

	s.log.Info("auto-confirmation tick finished",
		slog.Int("claimed", report.Claimed),
		slog.Int("completed", report.Completed),
		slog.Int("expired", report.Expired),
		slog.Int("failed", report.Failed))
	return report
}

func (s *Scheduler) prune(ctx context.Context) {
	if s.pruner == nil {
		return
	}
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.log.Warn("fraud record maintenance failed", sl.Err(err))
	}
}
