package channel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

// Transport is the already-authenticated, already-connected WhatsApp handle
// supplied by the transport collaborator. Connection bootstrap, credential
// persistence and reconnect are its problem, not ours.
type Transport interface {
	SendText(ctx context.Context, to, text string) error
	SendDocument(ctx context.Context, to, url, fileName, mimeType, caption string) error
	SendImage(ctx context.Context, to, url, caption string) error
	SendVideo(ctx context.Context, to, url, caption string) error
	SendTyping(ctx context.Context, to string, active bool) error
}

// WhatsAppSender delivers to one phone user through the transport bridge.
type WhatsAppSender struct {
	transport  Transport
	recorder   recorder
	businessID string
}

var _ Sender = (*WhatsAppSender)(nil)
var _ DocumentSender = (*WhatsAppSender)(nil)
var _ RichSender = (*WhatsAppSender)(nil)
var _ TypingSender = (*WhatsAppSender)(nil)
var _ ErrorSender = (*WhatsAppSender)(nil)

func NewWhatsAppSender(
	transport Transport,
	outboundRepo repository.OutboundMessageRepository,
	botID, businessID, userKey string,
) *WhatsAppSender {
	return &WhatsAppSender{
		transport: transport,
		recorder: recorder{
			outboundRepo: outboundRepo,
			botID:        botID,
			userKey:      userKey,
			channel:      model.ChannelWhatsApp,
		},
		businessID: businessID,
	}
}

func (s *WhatsAppSender) BotID() string          { return s.recorder.botID }
func (s *WhatsAppSender) BusinessID() string     { return s.businessID }
func (s *WhatsAppSender) UserKey() string        { return s.recorder.userKey }
func (s *WhatsAppSender) Channel() model.Channel { return model.ChannelWhatsApp }

func (s *WhatsAppSender) SendText(ctx context.Context, text string, meta model.Metadata) error {
	err := s.transport.SendText(ctx, s.recorder.userKey, text)
	s.recorder.record(ctx, model.OutboundKindText, text, meta, err)
	return err
}

func (s *WhatsAppSender) SendDocument(ctx context.Context, url, fileName, mimeType, caption string) error {
	err := s.transport.SendDocument(ctx, s.recorder.userKey, url, fileName, mimeType, caption)
	s.recorder.record(ctx, model.OutboundKindDocument, url, model.Metadata{
		"fileName": fileName,
		"mimeType": mimeType,
		"caption":  caption,
	}, err)
	return err
}

func (s *WhatsAppSender) SendRich(ctx context.Context, components []RichComponent, meta model.Metadata) error {
	var err error
	for _, c := range components {
		switch c.Kind {
		case model.MediaKindVideo:
			err = s.transport.SendVideo(ctx, s.recorder.userKey, c.URL, c.Caption)
		default:
			err = s.transport.SendImage(ctx, s.recorder.userKey, c.URL, c.Caption)
		}
		if err != nil {
			break
		}
	}
	content := ""
	if len(components) > 0 {
		content = components[0].URL
	}
	s.recorder.record(ctx, model.OutboundKindRich, content, meta, err)
	return err
}

func (s *WhatsAppSender) SendTyping(ctx context.Context, active bool) {
	if err := s.transport.SendTyping(ctx, s.recorder.userKey, active); err != nil {
		log.Debug().Err(err).Str("userKey", s.recorder.userKey).Msg("typing indicator failed")
	}
}

// SendError degrades to a prefixed text message on the phone channel.
func (s *WhatsAppSender) SendError(ctx context.Context, code, message string) {
	text := fmt.Sprintf("⚠️ %s", message)
	err := s.transport.SendText(ctx, s.recorder.userKey, text)
	s.recorder.record(ctx, model.OutboundKindError, text, model.Metadata{"code": code}, err)
	if err != nil {
		log.Warn().Err(err).Str("userKey", s.recorder.userKey).Msg("error message delivery failed")
	}
}
