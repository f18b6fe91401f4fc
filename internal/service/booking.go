package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/config"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

// BookingService runs the fixed booking state machine. All cross-turn state
// lives in the session row: the process can be restarted between any two
// turns without losing progress. Within a turn the session is persisted
// before the outbound message describing the new state is sent, so a crash
// between the two leaves the user one re-prompt away rather than in a stale
// state.
type BookingService struct {
	sessionRepo  repository.SessionRepository
	serviceRepo  repository.ServiceRepository
	availability *AvailabilityService
	reservations *ReservationService
	sessionTTL   time.Duration
	now          func() time.Time
}

func NewBookingService(
	sessionRepo repository.SessionRepository,
	serviceRepo repository.ServiceRepository,
	availability *AvailabilityService,
	reservations *ReservationService,
	sessionTTL time.Duration,
) *BookingService {
	return &BookingService{
		sessionRepo:  sessionRepo,
		serviceRepo:  serviceRepo,
		availability: availability,
		reservations: reservations,
		sessionTTL:   sessionTTL,
		now:          time.Now,
	}
}

// Start opens a fresh booking conversation. The triggering message itself
// is not consumed as input; the first prompt asks for the customer's name.
// The bot's step toggles are snapshotted into the session so configuration
// edits cannot change the shape of a flow already in progress.
func (s *BookingService) Start(ctx context.Context, sender channel.Sender, bot *model.Bot) error {
	data := model.DataMap{
		model.DataRequireBookingFor: boolFlag(bot.RequireBookingFor),
		model.DataRequireGender:     boolFlag(bot.RequireGender),
	}
	if sender.Channel() == model.ChannelWhatsApp {
		data[model.DataCustomerPhone] = sender.UserKey()
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		BotID:       bot.ID,
		UserKey:     sender.UserKey(),
		Channel:     sender.Channel(),
		FlowKind:    model.FlowKindBooking,
		CurrentStep: string(model.StepCollectingName),
		Data:        data,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	})
	if err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			// Lost a start race for this user; the active session's engine
			// will consume the next message.
			log.Warn().
				Str("botId", bot.ID).
				Str("userKey", sender.UserKey()).
				Msg("booking start skipped, session already active")
			return nil
		}
		return fmt.Errorf("create booking session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("botId", bot.ID).
		Str("userKey", sender.UserKey()).
		Msg("booking conversation started")

	return sender.SendText(ctx, msgAskName, nil)
}

// Handle consumes one turn of an active booking conversation.
func (s *BookingService) Handle(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, text string) error {
	step := model.BookingStep(session.CurrentStep)

	// Global cancel precedes state handling everywhere except confirmation,
	// where "cancel" is the negative branch of the question being asked.
	if step != model.StepConfirming && isCancelWord(text) {
		return s.cancel(ctx, sender, bot, session)
	}

	data := session.Data.Clone()

	switch step {
	case model.StepCollectingName:
		return s.handleName(ctx, sender, bot, session, data, text)
	case model.StepCollectingBookingFor:
		return s.handleBookingFor(ctx, sender, bot, session, data, text)
	case model.StepCollectingGender:
		return s.handleGender(ctx, sender, bot, session, data, text)
	case model.StepCollectingService:
		return s.handleService(ctx, sender, bot, session, data, text)
	case model.StepCollectingDate:
		return s.handleDate(ctx, sender, session, data, text)
	case model.StepCollectingTime:
		return s.handleTime(ctx, sender, session, data, text)
	case model.StepConfirming:
		return s.handleConfirm(ctx, sender, bot, session, data, text)
	default:
		log.Error().
			Str("sessionId", session.ID).
			Str("step", session.CurrentStep).
			Msg("booking session in unknown step, cancelling")
		return s.cancel(ctx, sender, bot, session)
	}
}

func (s *BookingService) handleName(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap, text string) error {
	name, ok := parseName(text)
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidName)
	}
	data[model.DataCustomerName] = name
	if data[model.DataBookingFor] == "" {
		data[model.DataBookingFor] = "self"
	}

	if data[model.DataRequireBookingFor] == "true" {
		return s.advance(ctx, sender, session, model.StepCollectingBookingFor, data, msgAskBookingFor)
	}
	if data[model.DataRequireGender] == "true" {
		return s.advance(ctx, sender, session, model.StepCollectingGender, data, msgAskGender)
	}
	return s.showServices(ctx, sender, bot, session, data)
}

func (s *BookingService) handleBookingFor(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap, text string) error {
	who, ok := parseBookingFor(text)
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidFor)
	}
	data[model.DataBookingFor] = who

	if data[model.DataRequireGender] == "true" {
		return s.advance(ctx, sender, session, model.StepCollectingGender, data, msgAskGender)
	}
	return s.showServices(ctx, sender, bot, session, data)
}

func (s *BookingService) handleGender(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap, text string) error {
	gender, ok := parseGender(text)
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidGender)
	}
	data[model.DataGender] = gender
	return s.showServices(ctx, sender, bot, session, data)
}

// showServices is the SHOWING_SERVICES transient: it emits the list and
// rests in the collecting step. Zero configured services is the one
// unrecoverable branch of the flow.
func (s *BookingService) showServices(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap) error {
	services, err := s.serviceRepo.FindActiveByBusinessID(ctx, sender.BusinessID())
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	if len(services) == 0 {
		log.Warn().Str("businessId", sender.BusinessID()).Msg("no active services, cancelling booking")
		if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		return sender.SendText(ctx, msgNoServices, nil)
	}
	return s.advance(ctx, sender, session, model.StepCollectingService, data, buildServiceList(services))
}

func (s *BookingService) handleService(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap, text string) error {
	services, err := s.serviceRepo.FindActiveByBusinessID(ctx, sender.BusinessID())
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	if len(services) == 0 {
		if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		return sender.SendText(ctx, msgNoServices, nil)
	}

	svc, ok := matchService(text, services)
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidService)
	}

	data[model.DataServiceID] = svc.ID
	data[model.DataServiceName] = svc.Name
	data[model.DataServicePrice] = fmt.Sprintf("%d", svc.PriceCents)
	data[model.DataServiceDuration] = fmt.Sprintf("%d", svc.DurationMin)

	window := dateWindow(s.now(), config.BookingDateWindowDays)
	return s.advance(ctx, sender, session, model.StepCollectingDate, data, buildDateList(window))
}

func (s *BookingService) handleDate(ctx context.Context, sender channel.Sender, session *model.ConversationSession, data model.DataMap, text string) error {
	date, ok := parseDate(text, s.now(), config.BookingDateWindowDays)
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidDate)
	}

	slots, err := s.availability.SlotsForDate(ctx, sender.BusinessID(), date)
	if err != nil {
		return fmt.Errorf("compute availability: %w", err)
	}
	if len(slots) == 0 {
		// Recoverable: route back to date selection with an explanation.
		window := dateWindow(s.now(), config.BookingDateWindowDays)
		return s.advance(ctx, sender, session, model.StepCollectingDate, data,
			msgNoSlotsOnDate+"\n"+buildDateList(window))
	}

	data[model.DataBookingDate] = date.Format(dateLayout)
	return s.advance(ctx, sender, session, model.StepCollectingTime, data, buildSlotList(date, slots))
}

func (s *BookingService) handleTime(ctx context.Context, sender channel.Sender, session *model.ConversationSession, data model.DataMap, text string) error {
	date, err := time.ParseInLocation(dateLayout, data[model.DataBookingDate], s.now().Location())
	if err != nil {
		return fmt.Errorf("corrupt booking date %q: %w", data[model.DataBookingDate], err)
	}

	// Availability is recomputed on every turn in this state so the index
	// the user sends always refers to the list they were last shown.
	slots, err := s.availability.SlotsForDate(ctx, sender.BusinessID(), date)
	if err != nil {
		return fmt.Errorf("compute availability: %w", err)
	}
	if len(slots) == 0 {
		delete(data, model.DataBookingDate)
		window := dateWindow(s.now(), config.BookingDateWindowDays)
		return s.advance(ctx, sender, session, model.StepCollectingDate, data,
			msgNoSlotsOnDate+"\n"+buildDateList(window))
	}

	idx, ok := parseSlotIndex(text, len(slots))
	if !ok {
		return s.reprompt(ctx, sender, session, msgInvalidSlot+"\n"+buildSlotList(date, slots))
	}

	data[model.DataBookingTime] = slots[idx-1]
	return s.advance(ctx, sender, session, model.StepConfirming, data, buildConfirmationSummary(data))
}

func (s *BookingService) handleConfirm(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap, text string) error {
	switch {
	case isAffirmative(text):
		return s.finalize(ctx, sender, bot, session, data)
	case isNegative(text):
		return s.cancel(ctx, sender, bot, session)
	default:
		return s.reprompt(ctx, sender, session, buildConfirmationSummary(data))
	}
}

// finalize invokes the reservation protocol exactly once per affirmative
// turn. A lost slot race rewinds to time selection with every other
// collected field intact; the conversation is only completed on success.
func (s *BookingService) finalize(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, data model.DataMap) error {
	var gender *string
	if g := data[model.DataGender]; g != "" {
		gender = &g
	}

	res, err := s.reservations.Reserve(ctx, model.CreateReservationParams{
		BusinessID:         sender.BusinessID(),
		BotID:              bot.ID,
		CustomerName:       data[model.DataCustomerName],
		BookingFor:         data[model.DataBookingFor],
		Gender:             gender,
		CustomerPhone:      data[model.DataCustomerPhone],
		ServiceID:          data[model.DataServiceID],
		ServiceName:        data[model.DataServiceName],
		ServicePriceCents:  atoiOrZero(data[model.DataServicePrice]),
		ServiceDurationMin: atoiOrZero(data[model.DataServiceDuration]),
		Date:               data[model.DataBookingDate],
		Time:               data[model.DataBookingTime],
		DurationMin:        atoiOrZero(data[model.DataServiceDuration]),
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return s.rewindToTimeSelection(ctx, sender, session, data)
		}
		return fmt.Errorf("reserve slot: %w", err)
	}

	if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("reservationId", res.ID).
		Str("reference", res.Reference).
		Msg("booking confirmed")

	tpl := bot.ConfirmationTemplate
	if tpl == "" {
		tpl = defaultConfirmationTemplate
	}
	return sender.SendText(ctx, renderTemplate(tpl, map[string]string{
		"reference": res.Reference,
		"name":      res.CustomerName,
		"service":   res.ServiceName,
		"date":      res.Date,
		"time":      res.Time,
	}), nil)
}

func (s *BookingService) rewindToTimeSelection(ctx context.Context, sender channel.Sender, session *model.ConversationSession, data model.DataMap) error {
	date, err := time.ParseInLocation(dateLayout, data[model.DataBookingDate], s.now().Location())
	if err != nil {
		return fmt.Errorf("corrupt booking date %q: %w", data[model.DataBookingDate], err)
	}

	slots, slotErr := s.availability.SlotsForDate(ctx, sender.BusinessID(), date)
	if slotErr != nil {
		return fmt.Errorf("compute availability: %w", slotErr)
	}

	delete(data, model.DataBookingTime)

	if len(slots) == 0 {
		// The whole day filled up while the user was deciding.
		delete(data, model.DataBookingDate)
		window := dateWindow(s.now(), config.BookingDateWindowDays)
		return s.advance(ctx, sender, session, model.StepCollectingDate, data,
			msgSlotTaken+"\n"+buildDateList(window))
	}
	return s.advance(ctx, sender, session, model.StepCollectingTime, data,
		msgSlotTaken+"\n"+buildSlotList(date, slots))
}

func (s *BookingService) cancel(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession) error {
	if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	log.Info().Str("sessionId", session.ID).Msg("booking conversation cancelled")

	tpl := bot.CancellationTemplate
	if tpl == "" {
		tpl = defaultCancellationTemplate
	}
	return sender.SendText(ctx, tpl, nil)
}

// advance persists the new step, collected data and slid expiry, then sends
// the prompt for the new state.
func (s *BookingService) advance(ctx context.Context, sender channel.Sender, session *model.ConversationSession, step model.BookingStep, data model.DataMap, prompt string) error {
	if err := s.sessionRepo.Update(ctx, model.UpdateSessionParams{
		ID:          session.ID,
		CurrentStep: string(step),
		Data:        data,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	}); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	session.CurrentStep = string(step)
	session.Data = data
	return sender.SendText(ctx, prompt, nil)
}

// reprompt keeps the state and collected data but still slides the expiry,
// since the user is clearly active.
func (s *BookingService) reprompt(ctx context.Context, sender channel.Sender, session *model.ConversationSession, prompt string) error {
	if err := s.sessionRepo.Update(ctx, model.UpdateSessionParams{
		ID:          session.ID,
		CurrentStep: session.CurrentStep,
		Data:        session.Data,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	}); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return sender.SendText(ctx, prompt, nil)
}

func boolFlag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func atoiOrZero(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
