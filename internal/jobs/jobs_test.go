package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bot-server-go/internal/channel"
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
	return m.Called(ctx, params).Error(0)
}

func (m *mockSessionRepo) Complete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockWebChatRepo struct {
	mock.Mock
}

func (m *mockWebChatRepo) Create(ctx context.Context, params model.CreateWebChatSessionParams) (*model.WebChatSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebChatSession), args.Error(1)
}

func (m *mockWebChatRepo) FindBySessionKey(ctx context.Context, sessionKey string) (*model.WebChatSession, error) {
	args := m.Called(ctx, sessionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebChatSession), args.Error(1)
}

func (m *mockWebChatRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
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

// stubTransport records text deliveries keyed by recipient.
type stubTransport struct {
	mu    sync.Mutex
	texts map[string][]string
	err   error
}

func newStubTransport() *stubTransport {
	return &stubTransport{texts: make(map[string][]string)}
}

func (s *stubTransport) SendText(ctx context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts[to] = append(s.texts[to], text)
	return nil
}

func (s *stubTransport) SendDocument(ctx context.Context, to, url, fileName, mimeType, caption string) error {
	return s.err
}

func (s *stubTransport) SendImage(ctx context.Context, to, url, caption string) error { return s.err }

func (s *stubTransport) SendVideo(ctx context.Context, to, url, caption string) error { return s.err }

func (s *stubTransport) SendTyping(ctx context.Context, to string, active bool) error { return s.err }

// liveSender is a registry-resident sender capturing texts in memory.
type liveSender struct {
	botID   string
	userKey string

	mu   sync.Mutex
	sent []string
}

func (s *liveSender) BotID() string          { return s.botID }
func (s *liveSender) BusinessID() string     { return "biz-1" }
func (s *liveSender) UserKey() string        { return s.userKey }
func (s *liveSender) Channel() model.Channel { return model.ChannelWeb }

func (s *liveSender) SendText(ctx context.Context, text string, meta model.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func TestSweepJob(t *testing.T) {
	t.Run("retires and deletes on each tick", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		webChatRepo := new(mockWebChatRepo)

		sessionRepo.On("SweepExpired", mock.Anything).Return(int64(3), nil)
		webChatRepo.On("DeleteExpired", mock.Anything).Return(int64(2), nil)

		job := NewSweepJob(sessionRepo, webChatRepo, time.Hour)
		job.sweep()

		sessionRepo.AssertExpectations(t)
		webChatRepo.AssertExpectations(t)
	})

	t.Run("a failing retire does not block the web chat cleanup", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		webChatRepo := new(mockWebChatRepo)

		sessionRepo.On("SweepExpired", mock.Anything).Return(int64(0), errors.New("deadlock detected"))
		webChatRepo.On("DeleteExpired", mock.Anything).Return(int64(1), nil)

		job := NewSweepJob(sessionRepo, webChatRepo, time.Hour)
		job.sweep()

		webChatRepo.AssertExpectations(t)
	})

	t.Run("start and stop round trip", func(t *testing.T) {
		sessionRepo := new(mockSessionRepo)
		webChatRepo := new(mockWebChatRepo)
		sessionRepo.On("SweepExpired", mock.Anything).Return(int64(0), nil).Maybe()
		webChatRepo.On("DeleteExpired", mock.Anything).Return(int64(0), nil).Maybe()

		job := NewSweepJob(sessionRepo, webChatRepo, 5*time.Millisecond)
		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()
	})
}

func phoneReservation(id, phone string) model.Reservation {
	return model.Reservation{
		ID:            id,
		BusinessID:    "biz-1",
		BotID:         "bot-1",
		CustomerName:  "Dana",
		CustomerPhone: phone,
		ServiceName:   "Haircut",
		Date:          "2026-03-03",
		Time:          "09:30",
		Status:        model.ReservationStatusConfirmed,
		Reference:     "ABCD2345",
	}
}

func newReminderFixture(t *testing.T) (*ReminderJob, *mockReservationRepo, *mockOutboundRepo, *stubTransport, *channel.Registry) {
	t.Helper()
	reservationRepo := new(mockReservationRepo)
	outboundRepo := new(mockOutboundRepo)
	transport := newStubTransport()
	registry := channel.NewRegistry()

	job := NewReminderJob(reservationRepo, outboundRepo, transport, registry, "0 18 * * *")
	job.now = func() time.Time {
		return time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	}
	return job, reservationRepo, outboundRepo, transport, registry
}

func TestReminderJob(t *testing.T) {
	t.Run("phone customers are reminded through the transport", func(t *testing.T) {
		job, reservationRepo, outboundRepo, transport, _ := newReminderFixture(t)

		reservationRepo.On("FindByDate", mock.Anything, "2026-03-03").
			Return([]model.Reservation{phoneReservation("res-1", "+15550001111")}, nil)
		outboundRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateOutboundMessageParams) bool {
			return p.UserKey == "+15550001111" && p.Status == model.OutboundStatusSent
		})).Return(&model.OutboundMessage{ID: "out-1"}, nil)

		job.runOnce()

		require.Len(t, transport.texts["+15550001111"], 1)
		text := transport.texts["+15550001111"][0]
		assert.Contains(t, text, "Haircut")
		assert.Contains(t, text, "09:30")
		assert.Contains(t, text, "ABCD2345")
		outboundRepo.AssertExpectations(t)
	})

	t.Run("a live registered sender wins over a fresh transport sender", func(t *testing.T) {
		job, reservationRepo, _, transport, registry := newReminderFixture(t)

		live := &liveSender{botID: "bot-1", userKey: "+15550001111"}
		registry.Register(live)

		reservationRepo.On("FindByDate", mock.Anything, "2026-03-03").
			Return([]model.Reservation{phoneReservation("res-1", "+15550001111")}, nil)

		job.runOnce()

		assert.Len(t, live.sent, 1)
		assert.Empty(t, transport.texts)
	})

	t.Run("web reservations without a live connection are skipped", func(t *testing.T) {
		job, reservationRepo, _, transport, _ := newReminderFixture(t)

		reservationRepo.On("FindByDate", mock.Anything, "2026-03-03").
			Return([]model.Reservation{phoneReservation("res-1", "")}, nil)

		job.runOnce()

		assert.Empty(t, transport.texts)
	})

	t.Run("a lookup failure aborts the run quietly", func(t *testing.T) {
		job, reservationRepo, _, transport, _ := newReminderFixture(t)

		reservationRepo.On("FindByDate", mock.Anything, "2026-03-03").
			Return(nil, errors.New("connection refused"))

		job.runOnce()

		assert.Empty(t, transport.texts)
	})

	t.Run("rejects a malformed cron spec", func(t *testing.T) {
		job := NewReminderJob(new(mockReservationRepo), new(mockOutboundRepo), newStubTransport(), channel.NewRegistry(), "not a spec")
		err := job.Start()
		assert.Error(t, err)
	})
}
