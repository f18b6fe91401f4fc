package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

// ErrActiveSessionExists is returned when an insert would violate the
// one-active-flow-per-user invariant. Callers treat it as routine control
// flow, not a fault.
var ErrActiveSessionExists = errors.New("an active conversation session already exists for this user")

const sessionActiveConstraint = "conversation_sessions_active_user_idx"

type SessionRepository interface {
	FindActive(ctx context.Context, botID, userKey string) (*model.ConversationSession, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error)
	Update(ctx context.Context, params model.UpdateSessionParams) error
	Complete(ctx context.Context, id string) error
	SweepExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindActive(ctx context.Context, botID, userKey string) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM conversation_sessions
		WHERE bot_id = $1 AND user_key = $2 AND NOT is_completed
	`, botID, userKey)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.ConversationSession, error) {
	var session model.ConversationSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO conversation_sessions
			(bot_id, user_key, channel, flow_kind, current_step, collected_data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.BotID, params.UserKey, params.Channel, params.FlowKind,
		params.CurrentStep, params.Data, params.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err, sessionActiveConstraint) {
			return nil, ErrActiveSessionExists
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, params model.UpdateSessionParams) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			current_step = $2,
			collected_data = $3,
			expires_at = $4,
			updated_at = NOW()
		WHERE id = $1
	`, params.ID, params.CurrentStep, params.Data, params.ExpiresAt)
	return err
}

func (r *sessionRepo) Complete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			is_completed = TRUE,
			updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

// SweepExpired marks timed-out sessions completed. Sessions are never
// deleted; completed rows remain for history.
func (r *sessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			is_completed = TRUE,
			updated_at = NOW()
		WHERE NOT is_completed AND expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
