package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

const reminderDateLayout = "2006-01-02"

// ReminderJob sends a day-before reminder for every reservation scheduled
// tomorrow. Phone customers are reached directly through the transport;
// web customers are reached only while their live sender is still
// registered, since the widget has no durable address.
type ReminderJob struct {
	reservationRepo repository.ReservationRepository
	outboundRepo    repository.OutboundMessageRepository
	transport       channel.Transport
	registry        *channel.Registry
	cron            *cron.Cron
	spec            string
	now             func() time.Time
}

func NewReminderJob(
	reservationRepo repository.ReservationRepository,
	outboundRepo repository.OutboundMessageRepository,
	transport channel.Transport,
	registry *channel.Registry,
	spec string,
) *ReminderJob {
	return &ReminderJob{
		reservationRepo: reservationRepo,
		outboundRepo:    outboundRepo,
		transport:       transport,
		registry:        registry,
		cron:            cron.New(),
		spec:            spec,
		now:             time.Now,
	}
}

func (j *ReminderJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.runOnce); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	j.cron.Start()
	log.Info().Str("spec", j.spec).Msg("reminder job scheduled")
	return nil
}

func (j *ReminderJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("reminder job stopped")
}

func (j *ReminderJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tomorrow := j.now().AddDate(0, 0, 1).Format(reminderDateLayout)
	reservations, err := j.reservationRepo.FindByDate(ctx, tomorrow)
	if err != nil {
		log.Error().Err(err).Str("date", tomorrow).Msg("reminder lookup failed")
		return
	}
	if len(reservations) == 0 {
		return
	}

	sent := 0
	for _, res := range reservations {
		if j.remind(ctx, res) {
			sent++
		}
	}
	log.Info().
		Str("date", tomorrow).
		Int("total", len(reservations)).
		Int("sent", sent).
		Msg("booking reminders dispatched")
}

func (j *ReminderJob) remind(ctx context.Context, res model.Reservation) bool {
	sender := j.senderFor(res)
	if sender == nil {
		log.Debug().
			Str("reservationId", res.ID).
			Msg("no reachable channel for reminder, skipping")
		return false
	}

	text := fmt.Sprintf(
		"Reminder: %s is booked tomorrow at %s for %s. Your reference is %s. See you then!",
		res.ServiceName, res.Time, res.CustomerName, res.Reference)
	if err := sender.SendText(ctx, text, model.Metadata{"reservationId": res.ID}); err != nil {
		log.Warn().Err(err).Str("reservationId", res.ID).Msg("reminder delivery failed")
		return false
	}
	return true
}

func (j *ReminderJob) senderFor(res model.Reservation) channel.Sender {
	if res.CustomerPhone != "" {
		if live := j.registry.Lookup(res.BotID, res.CustomerPhone); live != nil {
			return live
		}
		if j.transport != nil {
			return channel.NewWhatsAppSender(j.transport, j.outboundRepo, res.BotID, res.BusinessID, res.CustomerPhone)
		}
		return nil
	}
	// Web booking: only reachable through a still-live widget connection.
	return nil
}
