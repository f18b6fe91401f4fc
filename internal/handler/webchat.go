package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/channel"
	apperrors "github.com/bookline/bot-server-go/internal/errors"
	"github.com/bookline/bot-server-go/internal/httputil"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
	"github.com/bookline/bot-server-go/internal/service"
	"github.com/bookline/bot-server-go/internal/sse"
)

// WebChatHandler is the widget-facing API: anonymous session issuance,
// message posting and the SSE event stream.
type WebChatHandler struct {
	botRepo      repository.BotRepository
	webChatRepo  repository.WebChatSessionRepository
	outboundRepo repository.OutboundMessageRepository
	dispatcher   *service.Dispatcher
	broker       *sse.Broker
	registry     *channel.Registry
	ttl          time.Duration
}

func NewWebChatHandler(
	botRepo repository.BotRepository,
	webChatRepo repository.WebChatSessionRepository,
	outboundRepo repository.OutboundMessageRepository,
	dispatcher *service.Dispatcher,
	broker *sse.Broker,
	registry *channel.Registry,
	ttl time.Duration,
) *WebChatHandler {
	return &WebChatHandler{
		botRepo:      botRepo,
		webChatRepo:  webChatRepo,
		outboundRepo: outboundRepo,
		dispatcher:   dispatcher,
		broker:       broker,
		registry:     registry,
		ttl:          ttl,
	}
}

type createSessionRequest struct {
	BotID string `json:"botId"`
}

// CreateSession issues an anonymous widget session. The opaque session key
// doubles as the conversation user key, so a returning visitor with a new
// key is simply a new user.
func (h *WebChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}
	if req.BotID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("botId"))
		return
	}

	bot, err := h.botRepo.FindByID(r.Context(), req.BotID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if bot == nil {
		httputil.WriteError(w, apperrors.NotFound("bot"))
		return
	}

	session, err := h.webChatRepo.Create(r.Context(), model.CreateWebChatSessionParams{
		BotID:      bot.ID,
		SessionKey: uuid.NewString(),
		ExpiresAt:  time.Now().Add(h.ttl),
	})
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	log.Info().
		Str("botId", bot.ID).
		Str("sessionKey", session.SessionKey).
		Msg("web chat session created")

	httputil.WriteJSON(w, http.StatusCreated, session)
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// PostMessage accepts one widget message and runs the full dispatch turn.
// Replies are not returned in the response body; they arrive on the event
// stream.
func (h *WebChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	session, bot, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteError(w, apperrors.MissingRequired("text"))
		return
	}

	sender := channel.NewWebSender(h.broker, h.outboundRepo, bot.ID, bot.BusinessID, session.SessionKey)

	if err := h.dispatcher.HandleInbound(r.Context(), sender, req.Text, nil); err != nil {
		log.Error().Err(err).
			Str("sessionKey", session.SessionKey).
			Msg("inbound web chat turn failed")
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// StreamEvents is the widget's SSE endpoint. Events published for the
// session key are relayed until the client disconnects; heartbeat comments
// keep intermediaries from closing the idle connection.
func (h *WebChatHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		httputil.WriteError(w, apperrors.Internal("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	client := h.broker.Subscribe(session.SessionKey)
	defer h.broker.Unsubscribe(client)
	defer h.registry.Unregister(session.BotID, session.SessionKey)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-client.Events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

// resolveSession loads and validates the path session, writing the error
// response itself on failure.
func (h *WebChatHandler) resolveSession(w http.ResponseWriter, r *http.Request) (*model.WebChatSession, *model.Bot, bool) {
	sessionKey := chi.URLParam(r, "sessionKey")
	if sessionKey == "" {
		httputil.WriteError(w, apperrors.MissingRequired("sessionKey"))
		return nil, nil, false
	}

	session, err := h.webChatRepo.FindBySessionKey(r.Context(), sessionKey)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return nil, nil, false
	}
	if session == nil {
		httputil.WriteError(w, apperrors.NotFound("web chat session"))
		return nil, nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		httputil.WriteError(w, apperrors.SessionExpired())
		return nil, nil, false
	}

	bot, err := h.botRepo.FindByID(r.Context(), session.BotID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return nil, nil, false
	}
	if bot == nil {
		httputil.WriteError(w, apperrors.NotFound("bot"))
		return nil, nil, false
	}
	return session, bot, true
}
