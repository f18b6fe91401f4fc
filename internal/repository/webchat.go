package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

type WebChatSessionRepository interface {
	Create(ctx context.Context, params model.CreateWebChatSessionParams) (*model.WebChatSession, error)
	FindBySessionKey(ctx context.Context, sessionKey string) (*model.WebChatSession, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type webChatSessionRepo struct {
	db *sqlx.DB
}

func NewWebChatSessionRepository(db *sqlx.DB) WebChatSessionRepository {
	return &webChatSessionRepo{db: db}
}

func (r *webChatSessionRepo) Create(ctx context.Context, params model.CreateWebChatSessionParams) (*model.WebChatSession, error) {
	var session model.WebChatSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO web_chat_sessions (bot_id, session_key, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.BotID, params.SessionKey, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *webChatSessionRepo) FindBySessionKey(ctx context.Context, sessionKey string) (*model.WebChatSession, error) {
	var session model.WebChatSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM web_chat_sessions WHERE session_key = $1
	`, sessionKey)
	return HandleNotFound(&session, err)
}

func (r *webChatSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM web_chat_sessions WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
