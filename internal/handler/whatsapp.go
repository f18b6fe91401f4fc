// Package handler holds the HTTP entry points: the transport webhook for
// phone messages and the web widget API.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/channel"
	apperrors "github.com/bookline/bot-server-go/internal/errors"
	"github.com/bookline/bot-server-go/internal/httputil"
	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
	"github.com/bookline/bot-server-go/internal/service"
)

// WhatsAppHandler receives inbound phone messages from the transport
// collaborator. The webhook body is trusted once the signature middleware
// has passed; the handler's own job is shape validation and dispatch.
type WhatsAppHandler struct {
	botRepo      repository.BotRepository
	outboundRepo repository.OutboundMessageRepository
	transport    channel.Transport
	dispatcher   *service.Dispatcher
}

func NewWhatsAppHandler(
	botRepo repository.BotRepository,
	outboundRepo repository.OutboundMessageRepository,
	transport channel.Transport,
	dispatcher *service.Dispatcher,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		botRepo:      botRepo,
		outboundRepo: outboundRepo,
		transport:    transport,
		dispatcher:   dispatcher,
	}
}

type whatsAppWebhookRequest struct {
	BotID     string `json:"botId"`
	UserKey   string `json:"userKey"`
	Text      string `json:"text"`
	MessageID string `json:"messageId"`
}

// HandleWebhook processes one inbound message synchronously. The transport
// retries on non-2xx, so routing failures after the inbound row is written
// still return 200; only validation and bot lookup problems are surfaced.
func (h *WhatsAppHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var req whatsAppWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}
	if req.BotID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("botId"))
		return
	}
	if req.UserKey == "" {
		httputil.WriteError(w, apperrors.MissingRequired("userKey"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteError(w, apperrors.MissingRequired("text"))
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

	sender := channel.NewWhatsAppSender(h.transport, h.outboundRepo, bot.ID, bot.BusinessID, req.UserKey)

	meta := model.Metadata{}
	if req.MessageID != "" {
		meta["messageId"] = req.MessageID
	}

	if err := h.dispatcher.HandleInbound(r.Context(), sender, req.Text, meta); err != nil {
		// The turn is already audited and the user already got a reply or
		// an apology. A retry would double-process the message.
		log.Error().Err(err).
			Str("botId", req.BotID).
			Str("userKey", req.UserKey).
			Msg("inbound whatsapp turn failed")
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
