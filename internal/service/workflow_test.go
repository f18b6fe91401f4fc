package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bot-server-go/internal/model"
)

type workflowFixture struct {
	svc          *WorkflowService
	sessionRepo  *mockSessionRepo
	workflowRepo *mockWorkflowRepo
	mediaRepo    *mockMediaRepo
	inquiryRepo  *mockInquiryRepo
	booking      *BookingService
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	sessionRepo := new(mockSessionRepo)
	workflowRepo := new(mockWorkflowRepo)
	mediaRepo := new(mockMediaRepo)
	inquiryRepo := new(mockInquiryRepo)
	inboundRepo := new(mockInboundRepo)
	outboundRepo := new(mockOutboundRepo)
	inboundRepo.On("FindRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]model.InboundMessage{}, nil).Maybe()
	outboundRepo.On("FindRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]model.OutboundMessage{}, nil).Maybe()

	booking := NewBookingService(
		sessionRepo, new(mockServiceRepo),
		NewAvailabilityService(new(mockAvailabilityRepo), new(mockReservationRepo)),
		NewReservationService(new(mockReservationRepo)),
		30*time.Minute,
	)
	booking.now = func() time.Time { return testNow }

	aiService := NewAIService(&stubAIClient{reply: "stub reply"}, inboundRepo, outboundRepo)

	svc := NewWorkflowService(
		sessionRepo, workflowRepo, mediaRepo, inquiryRepo, aiService, booking, 30*time.Minute,
	)
	svc.now = func() time.Time { return testNow }

	return &workflowFixture{
		svc:          svc,
		sessionRepo:  sessionRepo,
		workflowRepo: workflowRepo,
		mediaRepo:    mediaRepo,
		inquiryRepo:  inquiryRepo,
		booking:      booking,
	}
}

func workflowBot() *model.Bot {
	return &model.Bot{
		ID: "bot-1", BusinessID: "biz-1", Name: "Bookline",
		BookingEnabled: true, WorkflowsEnabled: true,
	}
}

func workflowBusiness() *model.Business {
	return &model.Business{ID: "biz-1", Name: "Glow Salon", Address: "1 Main St"}
}

func priceInquiryWorkflow() model.WorkflowDefinition {
	return model.WorkflowDefinition{
		ID: "wf-1", BotID: "bot-1", Name: "Price inquiry",
		Triggers:  []string{"price", "pricing"},
		Published: true,
		Position:  0,
		Steps: model.StepList{
			{ID: "s1", Type: model.StepTypeCollectField, Prompt: "Which service are you asking about?", Key: "service"},
			{ID: "s2", Type: model.StepTypeShowOptions, Prompt: "When would you like to come in?", Key: "timing", Options: []string{"This week", "Next week"}},
		},
		Actions: model.ActionList{{Type: model.ActionSaveInquiry}},
	}
}

func workflowSession(wfID, stepID string, data model.DataMap) *model.ConversationSession {
	if data == nil {
		data = model.DataMap{}
	}
	data[model.DataWorkflowID] = wfID
	data[model.DataWorkflowStep] = stepID
	return &model.ConversationSession{
		ID: "sess-1", BotID: "bot-1", UserKey: "+15550001111",
		Channel: model.ChannelWhatsApp, FlowKind: model.FlowKindWorkflow,
		CurrentStep: stepID, Data: data,
		ExpiresAt: testNow.Add(30 * time.Minute),
	}
}

func TestWorkflowTryStart(t *testing.T) {
	t.Run("starts first matching workflow by position", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		second := priceInquiryWorkflow()
		second.ID = "wf-2"
		second.Position = 1
		second.Triggers = []string{"price list"}

		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{priceInquiryWorkflow(), second}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.FlowKind == model.FlowKindWorkflow &&
				p.Data[model.DataWorkflowID] == "wf-1" &&
				p.CurrentStep == "s1"
		})).Return(workflowSession("wf-1", "s1", nil), nil)
		f.sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		// "price list" contains both triggers; position order wins.
		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "send me the price list")

		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, "Which service are you asking about?", sender.lastSent())
	})

	t.Run("trigger match is case-insensitive substring", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{priceInquiryWorkflow()}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(workflowSession("wf-1", "s1", nil), nil)
		f.sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "What's your PRICING like?")

		require.NoError(t, err)
		assert.True(t, started)
	})

	t.Run("no trigger match returns false", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{priceInquiryWorkflow()}, nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "hello there")

		require.NoError(t, err)
		assert.False(t, started)
		assert.Zero(t, sender.sentCount())
	})

	t.Run("disabled workflows never trigger", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		bot := workflowBot()
		bot.WorkflowsEnabled = false

		started, err := f.svc.TryStart(context.Background(), sender, bot, workflowBusiness(), "price")

		require.NoError(t, err)
		assert.False(t, started)
		f.workflowRepo.AssertNotCalled(t, "FindPublishedByBotID", mock.Anything, mock.Anything)
	})
}

func TestWorkflowHandle(t *testing.T) {
	t.Run("collect_field stores answer and advances to options", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		session := workflowSession("wf-1", "s1", nil)

		wf := priceInquiryWorkflow()
		f.workflowRepo.On("FindByID", mock.Anything, "wf-1").Return(&wf, nil)
		f.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(p model.UpdateSessionParams) bool {
			return p.CurrentStep == "s2" && p.Data["service"] == "Haircut"
		})).Return(nil)

		require.NoError(t, f.svc.Handle(context.Background(), sender, workflowBot(), workflowBusiness(), session, "Haircut"))
		assert.Contains(t, sender.lastSent(), "When would you like to come in?")
		assert.Contains(t, sender.lastSent(), "1. This week")
	})

	t.Run("show_options accepts index and finishes with inquiry", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		session := workflowSession("wf-1", "s2", model.DataMap{
			"service":               "Haircut",
			model.DataCustomerPhone: "+15550001111",
		})

		wf := priceInquiryWorkflow()
		f.workflowRepo.On("FindByID", mock.Anything, "wf-1").Return(&wf, nil)
		f.inquiryRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateInquiryParams) bool {
			return p.BotID == "bot-1" &&
				p.Data["service"] == "Haircut" &&
				p.Data["timing"] == "Next week" &&
				p.CustomerPhone != nil && *p.CustomerPhone == "+15550001111"
		})).Return(&model.Inquiry{ID: "inq-1"}, nil)
		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)

		require.NoError(t, f.svc.Handle(context.Background(), sender, workflowBot(), workflowBusiness(), session, "2"))
		f.inquiryRepo.AssertExpectations(t)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("invalid option reprompts with the list", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		session := workflowSession("wf-1", "s2", nil)

		wf := priceInquiryWorkflow()
		f.workflowRepo.On("FindByID", mock.Anything, "wf-1").Return(&wf, nil)
		f.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(p model.UpdateSessionParams) bool {
			return p.CurrentStep == "s2"
		})).Return(nil)

		require.NoError(t, f.svc.Handle(context.Background(), sender, workflowBot(), workflowBusiness(), session, "5"))
		assert.Contains(t, sender.lastSent(), "1. This week")
		assert.Contains(t, sender.lastSent(), "2. Next week")
	})

	t.Run("cancel word ends the workflow", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		session := workflowSession("wf-1", "s1", nil)

		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)

		require.NoError(t, f.svc.Handle(context.Background(), sender, workflowBot(), workflowBusiness(), session, "cancel"))
		assert.Equal(t, defaultCancellationTemplate, sender.lastSent())
	})

	t.Run("deleted workflow retires the session", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)
		session := workflowSession("wf-gone", "s1", nil)

		f.workflowRepo.On("FindByID", mock.Anything, "wf-gone").Return(nil, nil)
		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)

		require.NoError(t, f.svc.Handle(context.Background(), sender, workflowBot(), workflowBusiness(), session, "anything"))
		f.sessionRepo.AssertExpectations(t)
	})
}

func TestWorkflowStepKinds(t *testing.T) {
	t.Run("share_media auto-advances through to input step", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		wf := model.WorkflowDefinition{
			ID: "wf-m", BotID: "bot-1", Published: true,
			Triggers: []string{"menu"},
			Steps: model.StepList{
				{ID: "m1", Type: model.StepTypeShareMedia, Prompt: "Here's our menu:", MediaIDs: []string{"asset-1"}},
				{ID: "m2", Type: model.StepTypeCollectField, Prompt: "Anything catch your eye?", Key: "pick"},
			},
		}
		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{wf}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(workflowSession("wf-m", "m1", nil), nil)
		f.mediaRepo.On("FindByIDs", mock.Anything, []string{"asset-1"}).
			Return([]model.MediaAsset{{ID: "asset-1", Kind: model.MediaKindDocument, URL: "https://cdn.example/menu.pdf", FileName: "menu.pdf"}}, nil)
		f.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(p model.UpdateSessionParams) bool {
			return p.CurrentStep == "m2"
		})).Return(nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "show me the menu")

		require.NoError(t, err)
		assert.True(t, started)
		// fakeSender has no document capability, so the asset degrades to a
		// text link before the next prompt.
		assert.GreaterOrEqual(t, sender.sentCount(), 3)
		assert.Equal(t, "Anything catch your eye?", sender.lastSent())
	})

	t.Run("start_booking hands off to the booking flow", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		wf := model.WorkflowDefinition{
			ID: "wf-b", BotID: "bot-1", Published: true,
			Triggers: []string{"appointment"},
			Steps: model.StepList{
				{ID: "b1", Type: model.StepTypeStartBooking},
			},
		}
		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{wf}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.FlowKind == model.FlowKindWorkflow
		})).Return(workflowSession("wf-b", "b1", nil), nil).Once()
		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)
		f.sessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
			return p.FlowKind == model.FlowKindBooking
		})).Return(testSession(model.StepCollectingName, nil), nil).Once()

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "book an appointment")

		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, msgAskName, sender.lastSent())
	})

	t.Run("ai_response emits a generated reply and continues", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		wf := model.WorkflowDefinition{
			ID: "wf-a", BotID: "bot-1", Published: true,
			Triggers: []string{"question"},
			Steps: model.StepList{
				{ID: "a1", Type: model.StepTypeAIResponse},
				{ID: "a2", Type: model.StepTypeCollectField, Prompt: "Anything else?", Key: "more"},
			},
		}
		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{wf}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(workflowSession("wf-a", "a1", nil), nil)
		f.sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "I have a question")

		require.NoError(t, err)
		assert.True(t, started)
		assert.Contains(t, sender.sent, "stub reply")
	})

	t.Run("unknown step type apologizes and retires the session", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		wf := model.WorkflowDefinition{
			ID: "wf-x", BotID: "bot-1", Published: true,
			Triggers: []string{"weird"},
			Steps: model.StepList{
				{ID: "x1", Type: model.StepType("teleport")},
			},
		}
		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{wf}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(workflowSession("wf-x", "x1", nil), nil)
		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "something weird")

		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, msgGenericFault, sender.lastSent())
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("cyclic next pointers are cut off", func(t *testing.T) {
		f := newWorkflowFixture(t)
		sender := newFakeSender("bot-1", "biz-1", "+15550001111", model.ChannelWhatsApp)

		wf := model.WorkflowDefinition{
			ID: "wf-loop", BotID: "bot-1", Published: true,
			Triggers: []string{"loop"},
			Steps: model.StepList{
				{ID: "l1", Type: model.StepTypeShareMedia, Prompt: "around we go", Next: "l1"},
			},
		}
		f.workflowRepo.On("FindPublishedByBotID", mock.Anything, "bot-1").
			Return([]model.WorkflowDefinition{wf}, nil)
		f.sessionRepo.On("Create", mock.Anything, mock.Anything).
			Return(workflowSession("wf-loop", "l1", nil), nil)
		f.sessionRepo.On("Complete", mock.Anything, "sess-1").Return(nil)

		started, err := f.svc.TryStart(context.Background(), sender, workflowBot(), workflowBusiness(), "loop please")

		require.NoError(t, err)
		assert.True(t, started)
		f.sessionRepo.AssertCalled(t, "Complete", mock.Anything, "sess-1")
	})
}
