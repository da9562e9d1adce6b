package services

import (
	"context"
	"sync"
	"time"

	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/rs/zerolog/log"
)

const notificationTimeout = 30 * time.Second

// dispatcher sends email in the background. Failures are logged and never reach the caller.
type dispatcher struct {
	sender  mailer.Sender
	pending sync.WaitGroup
}

func newDispatcher(sender mailer.Sender) *dispatcher {
	if sender == nil {
		sender = mailer.LogSender{}
	}
	return &dispatcher{sender: sender}
}

func (d *dispatcher) dispatch(msg mailer.Message, kind string) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("to", msg.To).Str("kind", kind).Msg("Failed to send email")
			return
		}
		log.Debug().Str("to", msg.To).Str("kind", kind).Msg("Email sent")
	}()
}

func (d *dispatcher) wait() {
	d.pending.Wait()
}
