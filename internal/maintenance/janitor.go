// Package maintenance runs periodic housekeeping against the stores.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/intake-api/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sweepTimeout = 30 * time.Second

// Janitor clears expired password-reset tokens on a cron schedule.
type Janitor struct {
	users    store.UserRepository
	schedule cron.Schedule
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewJanitor creates a Janitor. spec is a standard cron expression or a descriptor such as "@every 15m".
func NewJanitor(users store.UserRepository, spec string) (*Janitor, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return &Janitor{
		users:    users,
		schedule: schedule,
		now:      time.Now,
		done:     make(chan struct{}),
	}, nil
}

// Run sweeps once immediately and then on every scheduled tick until Stop.
func (j *Janitor) Run() {
	log.Info().Msg("Starting reset token janitor")
	j.sweepLogged()

	for {
		now := j.now()
		timer := time.NewTimer(j.schedule.Next(now).Sub(now))
		select {
		case <-j.done:
			timer.Stop()
			log.Info().Msg("Stopping reset token janitor")
			return
		case <-timer.C:
			j.sweepLogged()
		}
	}
}

// Stop halts the janitor.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.done) })
}

// Sweep clears every reset token that has expired and returns how many users were touched.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	return j.users.ClearExpiredResetTokens(ctx, j.now().UTC())
}

func (j *Janitor) sweepLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := j.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear expired reset tokens")
		return
	}
	if n > 0 {
		log.Info().Int64("cleared", n).Msg("Cleared expired reset tokens")
	}
}
