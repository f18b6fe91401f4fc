package channel

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
	"github.com/bookline/bot-server-go/internal/sse"
)

// WebSender delivers to one embedded-widget visitor through the SSE broker.
// The widget renders rich components natively but has no document viewer,
// so the document capability is deliberately not implemented; SendMedia
// degrades documents to text links.
type WebSender struct {
	broker     *sse.Broker
	recorder   recorder
	businessID string
}

var _ Sender = (*WebSender)(nil)
var _ RichSender = (*WebSender)(nil)
var _ TypingSender = (*WebSender)(nil)
var _ ErrorSender = (*WebSender)(nil)

func NewWebSender(
	broker *sse.Broker,
	outboundRepo repository.OutboundMessageRepository,
	botID, businessID, sessionKey string,
) *WebSender {
	return &WebSender{
		broker: broker,
		recorder: recorder{
			outboundRepo: outboundRepo,
			botID:        botID,
			userKey:      sessionKey,
			channel:      model.ChannelWeb,
		},
		businessID: businessID,
	}
}

func (s *WebSender) BotID() string          { return s.recorder.botID }
func (s *WebSender) BusinessID() string     { return s.businessID }
func (s *WebSender) UserKey() string        { return s.recorder.userKey }
func (s *WebSender) Channel() model.Channel { return model.ChannelWeb }

func (s *WebSender) publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, s.recorder.userKey, sse.Event{
		Type: eventType,
		Data: data,
	})
}

func (s *WebSender) SendText(ctx context.Context, text string, meta model.Metadata) error {
	err := s.publish(ctx, "message", map[string]any{
		"text":     text,
		"metadata": meta,
	})
	s.recorder.record(ctx, model.OutboundKindText, text, meta, err)
	return err
}

func (s *WebSender) SendRich(ctx context.Context, components []RichComponent, meta model.Metadata) error {
	err := s.publish(ctx, "message", map[string]any{
		"components": components,
		"metadata":   meta,
	})
	content := ""
	if len(components) > 0 {
		content = components[0].URL
	}
	s.recorder.record(ctx, model.OutboundKindRich, content, meta, err)
	return err
}

func (s *WebSender) SendTyping(ctx context.Context, active bool) {
	if err := s.publish(ctx, "typing", map[string]any{"active": active}); err != nil {
		log.Debug().Err(err).Str("sessionKey", s.recorder.userKey).Msg("typing event failed")
	}
}

// SendError is a distinct event type on the web channel.
func (s *WebSender) SendError(ctx context.Context, code, message string) {
	err := s.publish(ctx, "error", map[string]any{
		"code":    code,
		"message": message,
	})
	s.recorder.record(ctx, model.OutboundKindError, message, model.Metadata{"code": code}, err)
	if err != nil {
		log.Warn().Err(err).Str("sessionKey", s.recorder.userKey).Msg("error event delivery failed")
	}
}
