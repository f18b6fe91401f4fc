package model

import (
	"time"
)

// Reservation is the persisted booking record. Service fields are
// denormalized at creation time so later service edits do not retroactively
// alter history.
type Reservation struct {
	ID                 string            `db:"id" json:"id"`
	BusinessID         string            `db:"business_id" json:"businessId"`
	BotID              string            `db:"bot_id" json:"botId"`
	CustomerName       string            `db:"customer_name" json:"customerName"`
	BookingFor         string            `db:"booking_for" json:"bookingFor"`
	Gender             *string           `db:"gender" json:"gender,omitempty"`
	CustomerPhone      string            `db:"customer_phone" json:"customerPhone"`
	ServiceID          string            `db:"service_id" json:"serviceId"`
	ServiceName        string            `db:"service_name" json:"serviceName"`
	ServicePriceCents  int               `db:"service_price_cents" json:"servicePriceCents"`
	ServiceDurationMin int               `db:"service_duration_min" json:"serviceDurationMin"`
	Date               string            `db:"date" json:"date"` // YYYY-MM-DD
	Time               string            `db:"time" json:"time"` // HH:MM
	DurationMin        int               `db:"duration_min" json:"durationMin"`
	Status             ReservationStatus `db:"status" json:"status"`
	Reference          string            `db:"reference" json:"reference"`
	Notes              string            `db:"notes" json:"notes"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
}

type CreateReservationParams struct {
	BusinessID         string
	BotID              string
	CustomerName       string
	BookingFor         string
	Gender             *string
	CustomerPhone      string
	ServiceID          string
	ServiceName        string
	ServicePriceCents  int
	ServiceDurationMin int
	Date               string
	Time               string
	DurationMin        int
	Reference          string
	Notes              string
}
