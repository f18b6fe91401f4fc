package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

type InboundMessageRepository interface {
	Create(ctx context.Context, params model.CreateInboundMessageParams) (*model.InboundMessage, error)
	FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.InboundMessage, error)
}

type inboundMessageRepo struct {
	db *sqlx.DB
}

func NewInboundMessageRepository(db *sqlx.DB) InboundMessageRepository {
	return &inboundMessageRepo{db: db}
}

func (r *inboundMessageRepo) Create(ctx context.Context, params model.CreateInboundMessageParams) (*model.InboundMessage, error) {
	var msg model.InboundMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO inbound_messages (bot_id, user_key, channel, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.BotID, params.UserKey, params.Channel, params.Content, params.Metadata)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *inboundMessageRepo) FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.InboundMessage, error) {
	var msgs []model.InboundMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM inbound_messages
		WHERE bot_id = $1 AND user_key = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, botID, userKey, limit)
	return msgs, err
}

type OutboundMessageRepository interface {
	Create(ctx context.Context, params model.CreateOutboundMessageParams) (*model.OutboundMessage, error)
	FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.OutboundMessage, error)
}

type outboundMessageRepo struct {
	db *sqlx.DB
}

func NewOutboundMessageRepository(db *sqlx.DB) OutboundMessageRepository {
	return &outboundMessageRepo{db: db}
}

func (r *outboundMessageRepo) Create(ctx context.Context, params model.CreateOutboundMessageParams) (*model.OutboundMessage, error) {
	var msg model.OutboundMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO outbound_messages
			(bot_id, user_key, channel, kind, content, metadata, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`, params.BotID, params.UserKey, params.Channel, params.Kind, params.Content,
		params.Metadata, params.Status, params.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *outboundMessageRepo) FindRecent(ctx context.Context, botID, userKey string, limit int) ([]model.OutboundMessage, error) {
	var msgs []model.OutboundMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM outbound_messages
		WHERE bot_id = $1 AND user_key = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, botID, userKey, limit)
	return msgs, err
}
