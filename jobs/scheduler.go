package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = 5 * time.Minute

type ActivityRefresher interface {
	RefreshActivityStatuses(ctx context.Context) (int, error)
}

type OTPCleaner interface {
	DeleteExpiredOTPs(ctx context.Context, before time.Time) (int64, error)
}

// Schedule registers every periodic job on c. Jobs run one at a time per
// schedule entry; an overrunning run makes the next one skip.
func Schedule(c *cron.Cron, payments *PaymentJobs, activities ActivityRefresher, otps OTPCleaner, log zerolog.Logger) error {
	log = log.With().Str("component", "jobs").Logger()

	entries := []struct {
		spec string
		name string
		run  func(ctx context.Context)
	}{
		{"*/10 * * * *", "reconcile_payments", func(ctx context.Context) { payments.Reconcile(ctx) }},
		{"*/30 * * * *", "cancel_stale_pending", func(ctx context.Context) { payments.CancelStale(ctx) }},
		{"0 * * * *", "refresh_activity_status", func(ctx context.Context) {
			n, err := activities.RefreshActivityStatuses(ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to refresh activity statuses")
				return
			}
			if n > 0 {
				log.Info().Int("updated", n).Msg("activity statuses refreshed")
			}
		}},
		{"15 3 * * *", "purge_expired_otps", func(ctx context.Context) {
			n, err := otps.DeleteExpiredOTPs(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				log.Error().Err(err).Msg("failed to purge expired codes")
				return
			}
			log.Info().Int64("deleted", n).Msg("expired codes purged")
		}},
	}

	for _, e := range entries {
		e := e
		job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			log.Debug().Str("job", e.name).Msg("running job")
			e.run(ctx)
		}))
		if _, err := c.AddJob(e.spec, job); err != nil {
			return err
		}
	}
	return nil
}
