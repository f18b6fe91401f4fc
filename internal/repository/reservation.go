package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/bookline/bot-server-go/internal/model"
)

// ErrSlotTaken is returned when an insert loses the race for a slot. The
// authoritative guarantee is the partial unique index over
// (business_id, date, time) scoped to non-cancelled reservations; callers
// must treat this error as an expected outcome.
var ErrSlotTaken = errors.New("slot is already reserved")

const reservationSlotConstraint = "reservations_slot_idx"

type ReservationRepository interface {
	// Create attempts the atomic reserve. A uniqueness violation on the
	// slot index is translated to ErrSlotTaken.
	Create(ctx context.Context, params model.CreateReservationParams) (*model.Reservation, error)
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	// BookedTimes returns the HH:MM start times already held by
	// non-cancelled reservations for a business and date.
	BookedTimes(ctx context.Context, businessID, date string) ([]string, error)
	FindByBusinessAndDate(ctx context.Context, businessID, date string) ([]model.Reservation, error)
	// FindByDate returns non-cancelled reservations for a date across all
	// businesses. Used by the reminder job.
	FindByDate(ctx context.Context, date string) ([]model.Reservation, error)
}

type reservationRepo struct {
	db *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, params model.CreateReservationParams) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.GetContext(ctx, &res, `
		INSERT INTO reservations
			(business_id, bot_id, customer_name, booking_for, gender, customer_phone,
			 service_id, service_name, service_price_cents, service_duration_min,
			 date, time, duration_min, status, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', $14, $15)
		RETURNING *
	`, params.BusinessID, params.BotID, params.CustomerName, params.BookingFor,
		params.Gender, params.CustomerPhone, params.ServiceID, params.ServiceName,
		params.ServicePriceCents, params.ServiceDurationMin, params.Date, params.Time,
		params.DurationMin, params.Reference, params.Notes)
	if err != nil {
		if isUniqueViolation(err, reservationSlotConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.GetContext(ctx, &res, `SELECT * FROM reservations WHERE id = $1`, id)
	return HandleNotFound(&res, err)
}

func (r *reservationRepo) BookedTimes(ctx context.Context, businessID, date string) ([]string, error) {
	var times []string
	err := r.db.SelectContext(ctx, &times, `
		SELECT time FROM reservations
		WHERE business_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY time
	`, businessID, date)
	return times, err
}

func (r *reservationRepo) FindByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.SelectContext(ctx, &reservations, `
		SELECT * FROM reservations
		WHERE date = $1 AND status <> 'cancelled'
		ORDER BY business_id, time
	`, date)
	return reservations, err
}

func (r *reservationRepo) FindByBusinessAndDate(ctx context.Context, businessID, date string) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := r.db.SelectContext(ctx, &reservations, `
		SELECT * FROM reservations
		WHERE business_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY time
	`, businessID, date)
	return reservations, err
}
