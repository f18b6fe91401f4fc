package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

type InquiryRepository interface {
	Create(ctx context.Context, params model.CreateInquiryParams) (*model.Inquiry, error)
}

type inquiryRepo struct {
	db *sqlx.DB
}

func NewInquiryRepository(db *sqlx.DB) InquiryRepository {
	return &inquiryRepo{db: db}
}

func (r *inquiryRepo) Create(ctx context.Context, params model.CreateInquiryParams) (*model.Inquiry, error) {
	var inquiry model.Inquiry
	err := r.db.GetContext(ctx, &inquiry, `
		INSERT INTO inquiries (bot_id, channel, customer_phone, data)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.BotID, params.Channel, params.CustomerPhone, params.Data)
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}
