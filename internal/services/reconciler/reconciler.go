package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

// Expirer снимает истёкшие подписки в окне (now-window, now].
type Expirer interface {
	ExpireLapsed(ctx context.Context, now time.Time, window time.Duration) ([]string, error)
}

// ReconcilerService периодически снимает тариф у пользователей с истёкшей подпиской.
type ReconcilerService struct {
	expirer  Expirer
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
	// lastTick — момент последней успешной сверки, окно следующей начинается с него.
	lastTick time.Time
}

// NewReconcilerService создает новый экземпляр ReconcilerService.
func NewReconcilerService(expirer Expirer, interval time.Duration, log *slog.Logger) *ReconcilerService {
	return &ReconcilerService{
		expirer:  expirer,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет сверку сразу и затем раз в interval, пока не отменён ctx.
// Первая сверка смотрит на interval назад, каждая следующая продолжает с момента предыдущей успешной.
func (s *ReconcilerService) Run(ctx context.Context) {
	s.runExpireLapsed(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			s.runExpireLapsed(ctx)
		}
	}
}

func (s *ReconcilerService) runExpireLapsed(ctx context.Context) {
	const op = "reconciler.runExpireLapsed"
	now := s.now()
	window := s.interval
	if !s.lastTick.IsZero() {
		window = now.Sub(s.lastTick)
	}
	demoted, err := s.expirer.ExpireLapsed(ctx, now, window)
	if err != nil {
		// lastTick не сдвигаем: следующая сверка захватит и этот промежуток
		s.log.Error("failed to expire lapsed subscriptions", sl.Op(op), sl.Err(err))
		return
	}
	s.lastTick = now
	if len(demoted) == 0 {
		s.log.Debug("no lapsed subscriptions found")
		return
	}
	s.log.Info("lapsed subscriptions demoted", "count", len(demoted))
}
