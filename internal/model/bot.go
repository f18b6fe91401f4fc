package model

import (
	"time"

	"github.com/lib/pq"
)

type Business struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Phone    string `db:"phone" json:"phone"`
	Address  string `db:"address" json:"address"`
	Timezone string `db:"timezone" json:"timezone"`
}

// Bot is per-bot operator configuration. The conversation core reads it and
// never writes it.
type Bot struct {
	ID                   string         `db:"id" json:"id"`
	BusinessID           string         `db:"business_id" json:"businessId"`
	Name                 string         `db:"name" json:"name"`
	BookingEnabled       bool           `db:"booking_enabled" json:"bookingEnabled"`
	BookingTriggers      pq.StringArray `db:"booking_triggers" json:"bookingTriggers"`
	RequireBookingFor    bool           `db:"require_booking_for" json:"requireBookingFor"`
	RequireGender        bool           `db:"require_gender" json:"requireGender"`
	WorkflowsEnabled     bool           `db:"workflows_enabled" json:"workflowsEnabled"`
	ConfirmationTemplate string         `db:"confirmation_template" json:"confirmationTemplate"`
	CancellationTemplate string         `db:"cancellation_template" json:"cancellationTemplate"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
}

type Service struct {
	ID          string `db:"id" json:"id"`
	BusinessID  string `db:"business_id" json:"businessId"`
	Name        string `db:"name" json:"name"`
	PriceCents  int    `db:"price_cents" json:"priceCents"`
	DurationMin int    `db:"duration_min" json:"durationMin"`
	Active      bool   `db:"active" json:"active"`
	Position    int    `db:"position" json:"position"`
}
