package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

// maxStepHops bounds auto-advancing through non-input steps in a single
// turn, so a workflow whose Next pointers form a cycle cannot spin forever.
const maxStepHops = 25

// WorkflowService runs operator-authored workflows. Steps that need user
// input (collect_field, show_options) park the session; the rest emit and
// advance within the same turn.
type WorkflowService struct {
	sessionRepo  repository.SessionRepository
	workflowRepo repository.WorkflowRepository
	mediaRepo    repository.MediaRepository
	inquiryRepo  repository.InquiryRepository
	ai           *AIService
	booking      *BookingService
	sessionTTL   time.Duration
	now          func() time.Time
}

func NewWorkflowService(
	sessionRepo repository.SessionRepository,
	workflowRepo repository.WorkflowRepository,
	mediaRepo repository.MediaRepository,
	inquiryRepo repository.InquiryRepository,
	ai *AIService,
	booking *BookingService,
	sessionTTL time.Duration,
) *WorkflowService {
	return &WorkflowService{
		sessionRepo:  sessionRepo,
		workflowRepo: workflowRepo,
		mediaRepo:    mediaRepo,
		inquiryRepo:  inquiryRepo,
		ai:           ai,
		booking:      booking,
		sessionTTL:   sessionTTL,
		now:          time.Now,
	}
}

// TryStart scans the bot's published workflows in stored position order and
// starts the first whose trigger matches the message. Matching is a
// case-insensitive substring test. Returns false when nothing matched.
func (s *WorkflowService) TryStart(ctx context.Context, sender channel.Sender, bot *model.Bot, business *model.Business, text string) (bool, error) {
	if !bot.WorkflowsEnabled {
		return false, nil
	}

	workflows, err := s.workflowRepo.FindPublishedByBotID(ctx, bot.ID)
	if err != nil {
		return false, fmt.Errorf("load workflows: %w", err)
	}

	wf := matchWorkflow(workflows, text)
	if wf == nil {
		return false, nil
	}
	if len(wf.Steps) == 0 {
		log.Warn().Str("workflowId", wf.ID).Msg("workflow has no steps, ignoring trigger")
		return false, nil
	}

	data := model.DataMap{
		model.DataWorkflowID:   wf.ID,
		model.DataWorkflowStep: wf.Steps[0].ID,
	}
	if sender.Channel() == model.ChannelWhatsApp {
		data[model.DataCustomerPhone] = sender.UserKey()
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		BotID:       bot.ID,
		UserKey:     sender.UserKey(),
		Channel:     sender.Channel(),
		FlowKind:    model.FlowKindWorkflow,
		CurrentStep: wf.Steps[0].ID,
		Data:        data,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	})
	if err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			log.Warn().
				Str("botId", bot.ID).
				Str("userKey", sender.UserKey()).
				Msg("workflow start skipped, session already active")
			return true, nil
		}
		return false, fmt.Errorf("create workflow session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("workflowId", wf.ID).
		Str("workflowName", wf.Name).
		Msg("workflow started")

	return true, s.runFrom(ctx, sender, bot, business, session, wf, &wf.Steps[0], text)
}

// Handle consumes one turn of an active workflow conversation.
func (s *WorkflowService) Handle(ctx context.Context, sender channel.Sender, bot *model.Bot, business *model.Business, session *model.ConversationSession, text string) error {
	if isCancelWord(text) {
		return s.cancel(ctx, sender, bot, session)
	}

	wf, err := s.workflowRepo.FindByID(ctx, session.Data[model.DataWorkflowID])
	if err != nil {
		return fmt.Errorf("load workflow: %w", err)
	}
	if wf == nil {
		// Workflow was deleted mid-conversation.
		log.Warn().
			Str("sessionId", session.ID).
			Str("workflowId", session.Data[model.DataWorkflowID]).
			Msg("workflow vanished, cancelling session")
		return s.cancel(ctx, sender, bot, session)
	}

	step := wf.StepByID(session.CurrentStep)
	if step == nil {
		log.Error().
			Str("sessionId", session.ID).
			Str("stepId", session.CurrentStep).
			Msg("workflow step vanished, cancelling session")
		return s.cancel(ctx, sender, bot, session)
	}

	data := session.Data.Clone()

	switch step.Type {
	case model.StepTypeCollectField:
		value := strings.TrimSpace(text)
		if value == "" {
			return s.park(ctx, sender, session, step.ID, data, step.Prompt)
		}
		if step.Key != "" {
			data[step.Key] = value
		}
	case model.StepTypeShowOptions:
		choice, ok := matchOption(text, step.Options)
		if !ok {
			return s.park(ctx, sender, session, step.ID, data, buildOptionList(step.Prompt, step.Options))
		}
		if step.Key != "" {
			data[step.Key] = choice
		}
	default:
		// An input arrived while resting on a non-input step. Should not
		// happen; re-run the step to recover.
		return s.runFrom(ctx, sender, bot, business, session, wf, step, text)
	}

	next := wf.NextStep(step)
	if next == nil {
		return s.finish(ctx, sender, bot, session, wf, data)
	}
	return s.runFrom(ctx, sender, bot, business,
		&model.ConversationSession{ID: session.ID, CurrentStep: next.ID, Data: data},
		wf, next, text)
}

// runFrom executes from the given step, auto-advancing through emit-only
// steps until an input step parks the session or the workflow ends.
func (s *WorkflowService) runFrom(ctx context.Context, sender channel.Sender, bot *model.Bot, business *model.Business, session *model.ConversationSession, wf *model.WorkflowDefinition, step *model.WorkflowStep, text string) error {
	data := session.Data.Clone()

	for hops := 0; step != nil; hops++ {
		if hops >= maxStepHops {
			log.Error().
				Str("workflowId", wf.ID).
				Str("stepId", step.ID).
				Msg("workflow step limit exceeded, cancelling session")
			return s.cancel(ctx, sender, bot, session)
		}

		switch step.Type {
		case model.StepTypeCollectField:
			return s.park(ctx, sender, session, step.ID, data, step.Prompt)

		case model.StepTypeShowOptions:
			return s.park(ctx, sender, session, step.ID, data, buildOptionList(step.Prompt, step.Options))

		case model.StepTypeShareMedia:
			if err := s.shareMedia(ctx, sender, step); err != nil {
				return err
			}

		case model.StepTypeAIResponse:
			if ts, ok := sender.(channel.TypingSender); ok {
				ts.SendTyping(ctx, true)
			}
			reply := s.ai.Reply(ctx, business.Name, bot.ID, sender.UserKey(), text, "")
			if ts, ok := sender.(channel.TypingSender); ok {
				ts.SendTyping(ctx, false)
			}
			if err := sender.SendText(ctx, reply, nil); err != nil {
				return err
			}

		case model.StepTypeStartBooking:
			if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
				return fmt.Errorf("complete session: %w", err)
			}
			return s.booking.Start(ctx, sender, bot)

		default:
			log.Error().
				Str("workflowId", wf.ID).
				Str("stepId", step.ID).
				Str("stepType", string(step.Type)).
				Msg("unknown workflow step type, cancelling session")
			if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
				return fmt.Errorf("complete session: %w", err)
			}
			return sender.SendText(ctx, msgGenericFault, nil)
		}

		step = wf.NextStep(step)
	}

	return s.finish(ctx, sender, bot, session, wf, data)
}

// park persists the session resting on an input step and sends its prompt.
func (s *WorkflowService) park(ctx context.Context, sender channel.Sender, session *model.ConversationSession, stepID string, data model.DataMap, prompt string) error {
	data[model.DataWorkflowStep] = stepID
	if err := s.sessionRepo.Update(ctx, model.UpdateSessionParams{
		ID:          session.ID,
		CurrentStep: stepID,
		Data:        data,
		ExpiresAt:   s.now().Add(s.sessionTTL),
	}); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return sender.SendText(ctx, prompt, nil)
}

// finish executes terminal actions and completes the session.
func (s *WorkflowService) finish(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession, wf *model.WorkflowDefinition, data model.DataMap) error {
	for _, action := range wf.Actions {
		switch action.Type {
		case model.ActionSaveInquiry:
			var phone *string
			if p := data[model.DataCustomerPhone]; p != "" {
				phone = &p
			}
			if _, err := s.inquiryRepo.Create(ctx, model.CreateInquiryParams{
				BotID:         bot.ID,
				Channel:       sender.Channel(),
				CustomerPhone: phone,
				Data:          data,
			}); err != nil {
				return fmt.Errorf("save inquiry: %w", err)
			}
		default:
			log.Warn().
				Str("workflowId", wf.ID).
				Str("actionType", action.Type).
				Msg("unknown workflow action, skipping")
		}
	}

	if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("workflowId", wf.ID).
		Msg("workflow completed")
	return nil
}

func (s *WorkflowService) cancel(ctx context.Context, sender channel.Sender, bot *model.Bot, session *model.ConversationSession) error {
	if err := s.sessionRepo.Complete(ctx, session.ID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	tpl := bot.CancellationTemplate
	if tpl == "" {
		tpl = defaultCancellationTemplate
	}
	return sender.SendText(ctx, tpl, nil)
}

func (s *WorkflowService) shareMedia(ctx context.Context, sender channel.Sender, step *model.WorkflowStep) error {
	if step.Prompt != "" {
		if err := sender.SendText(ctx, step.Prompt, nil); err != nil {
			return err
		}
	}
	if len(step.MediaIDs) == 0 {
		return nil
	}
	assets, err := s.mediaRepo.FindByIDs(ctx, step.MediaIDs)
	if err != nil {
		return fmt.Errorf("load media assets: %w", err)
	}
	for _, asset := range assets {
		if err := channel.SendMedia(ctx, sender, asset); err != nil {
			return err
		}
	}
	return nil
}

// matchWorkflow returns the first workflow, in position order, with a
// trigger contained in the message. Empty triggers never match.
func matchWorkflow(workflows []model.WorkflowDefinition, text string) *model.WorkflowDefinition {
	lowered := strings.ToLower(text)
	for i := range workflows {
		for _, trigger := range workflows[i].Triggers {
			t := strings.ToLower(strings.TrimSpace(trigger))
			if t == "" {
				continue
			}
			if strings.Contains(lowered, t) {
				return &workflows[i]
			}
		}
	}
	return nil
}

// matchOption accepts a 1-based index or a case-insensitive label match.
func matchOption(input string, options []string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1], true
		}
		return "", false
	}
	lowered := strings.ToLower(trimmed)
	for _, opt := range options {
		if strings.ToLower(opt) == lowered {
			return opt, true
		}
	}
	return "", false
}

func buildOptionList(prompt string, options []string) string {
	var b strings.Builder
	b.WriteString(prompt)
	for i, opt := range options {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return b.String()
}
