package model

import (
	"time"
)

// ConversationSession is one durable flow instance for a (bot, user) pair.
// At most one non-completed row may exist per pair; the storage layer
// enforces this with a partial unique index.
type ConversationSession struct {
	ID          string    `db:"id" json:"id"`
	BotID       string    `db:"bot_id" json:"botId"`
	UserKey     string    `db:"user_key" json:"userKey"`
	Channel     Channel   `db:"channel" json:"channel"`
	FlowKind    FlowKind  `db:"flow_kind" json:"flowKind"`
	CurrentStep string    `db:"current_step" json:"currentStep"`
	Data        DataMap   `db:"collected_data" json:"collectedData"`
	IsCompleted bool      `db:"is_completed" json:"isCompleted"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateSessionParams struct {
	BotID       string
	UserKey     string
	Channel     Channel
	FlowKind    FlowKind
	CurrentStep string
	Data        DataMap
	ExpiresAt   time.Time
}

type UpdateSessionParams struct {
	ID          string
	CurrentStep string
	Data        DataMap
	ExpiresAt   time.Time
}

// Booking draft keys inside ConversationSession.Data. Kept as flat strings so
// the whole draft survives a round trip through JSONB untouched.
const (
	DataCustomerName    = "customerName"
	DataBookingFor      = "bookingFor"
	DataGender          = "gender"
	DataServiceID       = "serviceId"
	DataServiceName     = "serviceName"
	DataServicePrice    = "servicePrice"
	DataServiceDuration = "serviceDuration"
	DataBookingDate     = "bookingDate"
	DataBookingTime     = "bookingTime"
	DataCustomerPhone   = "customerPhone"

	// Flow policy snapshot taken once at conversation start so mid-flow
	// configuration edits cannot change which steps the flow visits.
	DataRequireBookingFor = "flowRequireBookingFor"
	DataRequireGender     = "flowRequireGender"

	// Workflow bookkeeping.
	DataWorkflowID   = "workflowId"
	DataWorkflowStep = "workflowStep"
)
