package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/bookline/bot-server-go/internal/ai"
	"github.com/bookline/bot-server-go/internal/model"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindActive(ctx context.Context, botID, userKey string) (*model.ConversationSession, error) {
	args := m.Called(ctx, botID, userKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationSession), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationSession), args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, params model.UpdateSessionParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockSessionRepo) Complete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockServiceRepo struct {
	mock.Mock
}

func (m *mockServiceRepo) FindActiveByBusinessID(ctx context.Context, businessID string) ([]model.Service, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Service), args.Error(1)
}

type mockAvailabilityRepo struct {
	mock.Mock
}

func (m *mockAvailabilityRepo) FindByBusinessAndWeekday(ctx context.Context, businessID string, dayOfWeek int) ([]model.AvailabilityTemplate, error) {
	args := m.Called(ctx, businessID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AvailabilityTemplate), args.Error(1)
}

type mockReservationRepo struct {
	mock.Mock
}

func (m *mockReservationRepo) Create(ctx context.Context, params model.CreateReservationParams) (*model.Reservation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *mockReservationRepo) BookedTimes(ctx context.Context, businessID, date string) ([]string, error) {
	args := m.Called(ctx, businessID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockReservationRepo) FindByBusinessAndDate(ctx context.Context, businessID, date string) ([]model.Reservation, error) {
	args := m.Called(ctx, businessID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *mockReservationRepo) FindByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

type mockWorkflowRepo struct {
	mock.Mock
}

func (m *mockWorkflowRepo) FindPublishedByBotID(ctx context.Context, botID string) ([]model.WorkflowDefinition, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkflowDefinition), args.Error(1)
}

func (m *mockWorkflowRepo) FindByID(ctx context.Context, id string) (*model.WorkflowDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowDefinition), args.Error(1)
}

type mockInquiryRepo struct {
	mock.Mock
}

func (m *mockInquiryRepo) Create(ctx context.Context, params model.CreateInquiryParams) (*model.Inquiry, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Inquiry), args.Error(1)
}

type mockMediaRepo struct {
	mock.Mock
}

func (m *mockMediaRepo) FindByBotID(ctx context.Context, botID string) ([]model.MediaAsset, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MediaAsset), args.Error(1)
}

func (m *mockMediaRepo) FindByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MediaAsset), args.Error(1)
}

type mockBotRepo struct {
	mock.Mock
}

func (m *mockBotRepo) FindByID(ctx context.Context, id string) (*model.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bot), args.Error(1)
}

func (m *mockBotRepo) FindBusinessByID(ctx context.Context, id string) (*model.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

type mockInboundRepo struct {
	mock.Mock
}

func (m *mockInboundRepo) Create(ctx context.Context, params model.CreateInboundMessageParams) (*model.InboundMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InboundMessage), args.Error(1)
}

func (m *mockInboundRepo) FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.InboundMessage, error) {
	args := m.Called(ctx, botID, userKey, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InboundMessage), args.Error(1)
}

type mockOutboundRepo struct {
	mock.Mock
}

func (m *mockOutboundRepo) Create(ctx context.Context, params model.CreateOutboundMessageParams) (*model.OutboundMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OutboundMessage), args.Error(1)
}

func (m *mockOutboundRepo) FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.OutboundMessage, error) {
	args := m.Called(ctx, botID, userKey, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboundMessage), args.Error(1)
}

type stubAIClient struct {
	intent ai.Intent
	reply  string
	err    error
}

func (s *stubAIClient) Classify(ctx context.Context, businessName, message string) (ai.Intent, error) {
	return s.intent, s.err
}

func (s *stubAIClient) Reply(ctx context.Context, businessName, message, prevIntent string, history []ai.Turn) (string, error) {
	return s.reply, s.err
}

// fakeSender records everything sent through it. It implements only the
// required Sender surface, so optional-capability fallbacks get exercised.
type fakeSender struct {
	mu       sync.Mutex
	botID    string
	business string
	userKey  string
	channel  model.Channel
	sent     []string
	sendErr  error
}

func newFakeSender(botID, businessID, userKey string, ch model.Channel) *fakeSender {
	return &fakeSender{botID: botID, business: businessID, userKey: userKey, channel: ch}
}

func (f *fakeSender) BotID() string          { return f.botID }
func (f *fakeSender) BusinessID() string     { return f.business }
func (f *fakeSender) UserKey() string        { return f.userKey }
func (f *fakeSender) Channel() model.Channel { return f.channel }

func (f *fakeSender) SendText(ctx context.Context, text string, meta model.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeSender) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
