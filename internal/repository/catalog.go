package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

// BotRepository reads operator configuration. The conversation core never
// writes through it.
type BotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Bot, error)
	FindBusinessByID(ctx context.Context, id string) (*model.Business, error)
}

type botRepo struct {
	db *sqlx.DB
}

func NewBotRepository(db *sqlx.DB) BotRepository {
	return &botRepo{db: db}
}

func (r *botRepo) FindByID(ctx context.Context, id string) (*model.Bot, error) {
	var bot model.Bot
	err := r.db.GetContext(ctx, &bot, `SELECT * FROM bots WHERE id = $1`, id)
	return HandleNotFound(&bot, err)
}

func (r *botRepo) FindBusinessByID(ctx context.Context, id string) (*model.Business, error) {
	var business model.Business
	err := r.db.GetContext(ctx, &business, `SELECT * FROM businesses WHERE id = $1`, id)
	return HandleNotFound(&business, err)
}

type ServiceRepository interface {
	FindActiveByBusinessID(ctx context.Context, businessID string) ([]model.Service, error)
}

type serviceRepo struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) ServiceRepository {
	return &serviceRepo{db: db}
}

func (r *serviceRepo) FindActiveByBusinessID(ctx context.Context, businessID string) ([]model.Service, error) {
	var services []model.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services
		WHERE business_id = $1 AND active
		ORDER BY position, name
	`, businessID)
	return services, err
}

type AvailabilityRepository interface {
	FindByBusinessAndWeekday(ctx context.Context, businessID string, dayOfWeek int) ([]model.AvailabilityTemplate, error)
}

type availabilityRepo struct {
	db *sqlx.DB
}

func NewAvailabilityRepository(db *sqlx.DB) AvailabilityRepository {
	return &availabilityRepo{db: db}
}

func (r *availabilityRepo) FindByBusinessAndWeekday(ctx context.Context, businessID string, dayOfWeek int) ([]model.AvailabilityTemplate, error) {
	var templates []model.AvailabilityTemplate
	err := r.db.SelectContext(ctx, &templates, `
		SELECT * FROM availability_templates
		WHERE business_id = $1 AND day_of_week = $2 AND active
		ORDER BY start_time
	`, businessID, dayOfWeek)
	return templates, err
}

type MediaRepository interface {
	FindByBotID(ctx context.Context, botID string) ([]model.MediaAsset, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error)
}

type mediaRepo struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) MediaRepository {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) FindByBotID(ctx context.Context, botID string) ([]model.MediaAsset, error) {
	var assets []model.MediaAsset
	err := r.db.SelectContext(ctx, &assets, `
		SELECT * FROM media_assets WHERE bot_id = $1 ORDER BY position
	`, botID)
	return assets, err
}

func (r *mediaRepo) FindByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM media_assets WHERE id IN (?) ORDER BY position`, ids)
	if err != nil {
		return nil, err
	}
	var assets []model.MediaAsset
	err = r.db.SelectContext(ctx, &assets, r.db.Rebind(query), args...)
	return assets, err
}
