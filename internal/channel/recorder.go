package channel

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bookline/bot-server-go/internal/model"
	"github.com/bookline/bot-server-go/internal/repository"
)

// recorder persists the outbound audit row both adapters must write. The
// row is the system's only message audit trail, so it is written even when
// the transport send failed.
type recorder struct {
	outboundRepo repository.OutboundMessageRepository
	botID        string
	userKey      string
	channel      model.Channel
}

func (r *recorder) record(ctx context.Context, kind model.OutboundKind, content string, meta model.Metadata, sendErr error) {
	status := model.OutboundStatusSent
	var errMsg *string
	if sendErr != nil {
		status = model.OutboundStatusFailed
		s := sendErr.Error()
		errMsg = &s
	}

	_, err := r.outboundRepo.Create(ctx, model.CreateOutboundMessageParams{
		BotID:        r.botID,
		UserKey:      r.userKey,
		Channel:      r.channel,
		Kind:         kind,
		Content:      content,
		Metadata:     meta,
		Status:       status,
		ErrorMessage: errMsg,
	})
	if err != nil {
		log.Error().Err(err).
			Str("botId", r.botID).
			Str("userKey", r.userKey).
			Str("channel", string(r.channel)).
			Msg("failed to persist outbound message record")
	}
}
