package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookline/bot-server-go/internal/channel"
	"github.com/bookline/bot-server-go/internal/model"
)

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

func newWebChatFixture() (*WebChatHandler, *mockBotRepo, *mockWebChatRepo) {
	botRepo := new(mockBotRepo)
	webChatRepo := new(mockWebChatRepo)
	h := NewWebChatHandler(
		botRepo, webChatRepo, nil, nil, nil, channel.NewRegistry(), 24*time.Hour,
	)
	return h, botRepo, webChatRepo
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCreateSession(t *testing.T) {
	t.Run("issues a session for a known bot", func(t *testing.T) {
		h, botRepo, webChatRepo := newWebChatFixture()

		botRepo.On("FindByID", mock.Anything, "bot-1").
			Return(&model.Bot{ID: "bot-1", BusinessID: "biz-1"}, nil)
		webChatRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateWebChatSessionParams) bool {
			return p.BotID == "bot-1" && p.SessionKey != "" && time.Until(p.ExpiresAt) > 23*time.Hour
		})).Return(&model.WebChatSession{
			ID: "wcs-1", BotID: "bot-1", SessionKey: "key-1",
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}, nil)

		rec := postJSON(t, h.CreateSession, "/v1/webchat/sessions", map[string]string{"botId": "bot-1"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp model.WebChatSession
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "key-1", resp.SessionKey)
	})

	t.Run("rejects a missing botId", func(t *testing.T) {
		h, _, _ := newWebChatFixture()

		rec := postJSON(t, h.CreateSession, "/v1/webchat/sessions", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown bot", func(t *testing.T) {
		h, botRepo, _ := newWebChatFixture()

		botRepo.On("FindByID", mock.Anything, "nope").Return(nil, nil)

		rec := postJSON(t, h.CreateSession, "/v1/webchat/sessions", map[string]string{"botId": "nope"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPostMessageSessionChecks(t *testing.T) {
	withSessionKey := func(r *http.Request, key string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("sessionKey", key)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("unknown session returns 404", func(t *testing.T) {
		h, _, webChatRepo := newWebChatFixture()

		webChatRepo.On("FindBySessionKey", mock.Anything, "missing").Return(nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/webchat/sessions/missing/messages",
			bytes.NewReader([]byte(`{"text":"hi"}`)))
		req = withSessionKey(req, "missing")
		rec := httptest.NewRecorder()

		h.PostMessage(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("expired session returns 410", func(t *testing.T) {
		h, _, webChatRepo := newWebChatFixture()

		webChatRepo.On("FindBySessionKey", mock.Anything, "stale").
			Return(&model.WebChatSession{
				ID: "wcs-1", BotID: "bot-1", SessionKey: "stale",
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/webchat/sessions/stale/messages",
			bytes.NewReader([]byte(`{"text":"hi"}`)))
		req = withSessionKey(req, "stale")
		rec := httptest.NewRecorder()

		h.PostMessage(rec, req)

		assert.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		h, botRepo, webChatRepo := newWebChatFixture()

		webChatRepo.On("FindBySessionKey", mock.Anything, "key-1").
			Return(&model.WebChatSession{
				ID: "wcs-1", BotID: "bot-1", SessionKey: "key-1",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil)
		botRepo.On("FindByID", mock.Anything, "bot-1").
			Return(&model.Bot{ID: "bot-1", BusinessID: "biz-1"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/webchat/sessions/key-1/messages",
			bytes.NewReader([]byte(`{"text":"   "}`)))
		req = withSessionKey(req, "key-1")
		rec := httptest.NewRecorder()

		h.PostMessage(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
