package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/ai"
	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/errors"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

const (
	msgSessionExpired = "Looks like our previous conversation timed out, so let's start fresh."
	msgOffTopic       = "I can help with questions about our services and bookings. Is there anything like that I can do for you?"
)

// Dispatcher routes each inbound message to exactly one engine. Routing
// precedence: active session first, then workflow triggers, then booking
// triggers, then intent classification, then a free-form reply. A turn for
// one (bot, user) pair is fully serialized by a keyed lock.
type Dispatcher struct {
	botRepo     repository.BotRepository
	sessionRepo repository.SessionRepository
	inboundRepo repository.InboundMessageRepository
	booking     *BookingService
	workflow    *WorkflowService
	ai          *AIService
	locks       *SessionLocks
	registry    *channel.Registry
	threshold   float64
	now         func() time.Time
}

func NewDispatcher(
	botRepo repository.BotRepository,
	sessionRepo repository.SessionRepository,
	inboundRepo repository.InboundMessageRepository,
	booking *BookingService,
	workflow *WorkflowService,
	ai *AIService,
	locks *SessionLocks,
	registry *channel.Registry,
	threshold float64,
) *Dispatcher {
	return &Dispatcher{
		botRepo:     botRepo,
		sessionRepo: sessionRepo,
		inboundRepo: inboundRepo,
		booking:     booking,
		workflow:    workflow,
		ai:          ai,
		locks:       locks,
		registry:    registry,
		threshold:   threshold,
		now:         time.Now,
	}
}

// HandleInbound processes one inbound message end to end. Faults from any
// engine are contained here, panics and returned errors alike: the user
// gets a generic apology, the turn is logged, and session state is left as
// the failing turn left it so the next message resumes there. The one
// exception is a webhook addressed to an unknown bot, which has no
// conversation to respond into and is surfaced to the caller instead.
func (d *Dispatcher) HandleInbound(ctx context.Context, sender channel.Sender, text string, meta model.Metadata) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("botId", sender.BotID()).
				Str("userKey", sender.UserKey()).
				Msg("inbound turn panicked")
			d.apologize(ctx, sender)
			err = errors.Internal(fmt.Sprintf("inbound turn panic: %v", r))
		}
	}()

	bot, err := d.botRepo.FindByID(ctx, sender.BotID())
	if err != nil {
		return fmt.Errorf("load bot: %w", err)
	}
	if bot == nil {
		return errors.NotFound("bot")
	}
	business, err := d.botRepo.FindBusinessByID(ctx, bot.BusinessID)
	if err != nil {
		return fmt.Errorf("load business: %w", err)
	}
	if business == nil {
		return errors.NotFound("business")
	}

	if err := d.handleTurn(ctx, sender, bot, business, text, meta); err != nil {
		log.Error().Err(err).
			Str("botId", bot.ID).
			Str("userKey", sender.UserKey()).
			Msg("inbound turn failed")
		d.apologize(ctx, sender)
		return err
	}
	return nil
}

// apologize is the last-resort reply on an unexpected failure. Best-effort:
// if the channel itself is down there is nothing further to do.
func (d *Dispatcher) apologize(ctx context.Context, sender channel.Sender) {
	if es, ok := sender.(channel.ErrorSender); ok {
		es.SendError(ctx, string(errors.ErrCodeInternal), msgGenericFault)
		return
	}
	_ = sender.SendText(ctx, msgGenericFault, nil)
}

// handleTurn is the routing body. Expected conditions (invalid input, lost
// slot races, expired sessions) are handled by the engines themselves; any
// error returned from here is a collaborator fault.
func (d *Dispatcher) handleTurn(ctx context.Context, sender channel.Sender, bot *model.Bot, business *model.Business, text string, meta model.Metadata) error {
	// Audit first. The inbound row exists even if routing fails.
	if _, err := d.inboundRepo.Create(ctx, model.CreateInboundMessageParams{
		BotID:    bot.ID,
		UserKey:  sender.UserKey(),
		Channel:  sender.Channel(),
		Content:  text,
		Metadata: meta,
	}); err != nil {
		return fmt.Errorf("record inbound message: %w", err)
	}

	d.registry.Register(sender)

	unlock := d.locks.Lock(bot.ID, sender.UserKey())
	defer unlock()

	session, err := d.sessionRepo.FindActive(ctx, bot.ID, sender.UserKey())
	if err != nil {
		return fmt.Errorf("find active session: %w", err)
	}

	if session != nil {
		// The sweep job lags; an expired row found here is retired inline
		// and the message falls through to fresh routing.
		if d.now().After(session.ExpiresAt) {
			if err := d.sessionRepo.Complete(ctx, session.ID); err != nil {
				return fmt.Errorf("complete expired session: %w", err)
			}
			if err := sender.SendText(ctx, msgSessionExpired, nil); err != nil {
				return err
			}
		} else {
			switch session.FlowKind {
			case model.FlowKindBooking:
				return d.booking.Handle(ctx, sender, bot, session, text)
			case model.FlowKindWorkflow:
				return d.workflow.Handle(ctx, sender, bot, business, session, text)
			default:
				log.Error().
					Str("sessionId", session.ID).
					Str("flowKind", string(session.FlowKind)).
					Msg("session with unknown flow kind, retiring")
				if err := d.sessionRepo.Complete(ctx, session.ID); err != nil {
					return fmt.Errorf("complete session: %w", err)
				}
			}
		}
	}

	return d.routeFresh(ctx, sender, bot, business, text)
}

// routeFresh handles a message with no session attached.
func (d *Dispatcher) routeFresh(ctx context.Context, sender channel.Sender, bot *model.Bot, business *model.Business, text string) error {
	started, err := d.workflow.TryStart(ctx, sender, bot, business, text)
	if err != nil {
		return err
	}
	if started {
		return nil
	}

	if bot.BookingEnabled && matchesTrigger(bot.BookingTriggers, text) {
		return d.booking.Start(ctx, sender, bot)
	}

	if ts, ok := sender.(channel.TypingSender); ok {
		ts.SendTyping(ctx, true)
		defer ts.SendTyping(ctx, false)
	}

	intent := d.ai.Classify(ctx, business.Name, text)
	log.Debug().
		Str("botId", bot.ID).
		Str("label", intent.Label).
		Float64("confidence", intent.Confidence).
		Msg("inbound message classified")

	switch {
	case intent.Label == ai.IntentBooking && intent.Confidence >= d.threshold && bot.BookingEnabled:
		return d.booking.Start(ctx, sender, bot)
	case intent.Label == ai.IntentLocation:
		return sender.SendText(ctx, buildLocationReply(business), nil)
	case intent.Label == ai.IntentOffTopic:
		reply := intent.SuggestedReply
		if reply == "" {
			reply = msgOffTopic
		}
		return sender.SendText(ctx, reply, nil)
	default:
		reply := d.ai.Reply(ctx, business.Name, bot.ID, sender.UserKey(), text, intent.Label)
		return sender.SendText(ctx, reply, nil)
	}
}

// matchesTrigger reports whether any configured trigger appears in the
// message, case-insensitively.
func matchesTrigger(triggers []string, text string) bool {
	lowered := strings.ToLower(text)
	for _, trigger := range triggers {
		t := strings.ToLower(strings.TrimSpace(trigger))
		if t == "" {
			continue
		}
		if strings.Contains(lowered, t) {
			return true
		}
	}
	return false
}

// buildLocationReply answers location questions from stored business data
// without a model round trip.
func buildLocationReply(business *model.Business) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You can find %s at %s.", business.Name, business.Address)
	if business.Phone != "" {
		fmt.Fprintf(&b, " Call us at %s if you need directions.", business.Phone)
	}
	return b.String()
}
