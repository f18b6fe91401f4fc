package model

// AvailabilityTemplate is one weekly availability window for a business.
// Concrete bookable slots are derived, never stored: the template for a
// date's weekday is expanded into slot start times and intersected with
// existing non-cancelled reservations.
type AvailabilityTemplate struct {
	ID          string `db:"id" json:"id"`
	BusinessID  string `db:"business_id" json:"businessId"`
	DayOfWeek   int    `db:"day_of_week" json:"dayOfWeek"` // 0 = Sunday
	StartTime   string `db:"start_time" json:"startTime"`  // HH:MM
	EndTime     string `db:"end_time" json:"endTime"`      // HH:MM
	SlotMinutes int    `db:"slot_minutes" json:"slotMinutes"`
	Active      bool   `db:"active" json:"active"`
}
