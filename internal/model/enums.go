package model

// Channel identifies the transport a conversation runs over.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// FlowKind distinguishes the two conversation engines.
type FlowKind string

const (
	FlowKindBooking  FlowKind = "booking"
	FlowKindWorkflow FlowKind = "workflow"
)

// BookingStep enumerates the resting states of the booking state machine.
// List-emitting states are transient: the engine sends the list and
// immediately persists the corresponding collecting step.
type BookingStep string

const (
	StepCollectingName       BookingStep = "collecting_name"
	StepCollectingBookingFor BookingStep = "collecting_booking_for"
	StepCollectingGender     BookingStep = "collecting_gender"
	StepCollectingService    BookingStep = "collecting_service"
	StepCollectingDate       BookingStep = "collecting_date"
	StepCollectingTime       BookingStep = "collecting_time"
	StepConfirming           BookingStep = "confirming"
	StepCompleted            BookingStep = "completed"
)

// ReservationStatus tracks a reservation through its lifecycle. The
// conversation engines only ever create pending reservations; later
// transitions belong to the operator dashboard.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

// StepType enumerates the workflow step tagged union.
type StepType string

const (
	StepTypeCollectField StepType = "collect_field"
	StepTypeShowOptions  StepType = "show_options"
	StepTypeShareMedia   StepType = "share_media"
	StepTypeAIResponse   StepType = "ai_response"
	StepTypeStartBooking StepType = "start_booking"
)

// MediaKind classifies bot media assets.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// OutboundStatus records delivery outcome on the audit trail.
type OutboundStatus string

const (
	OutboundStatusSent   OutboundStatus = "sent"
	OutboundStatusFailed OutboundStatus = "failed"
)

// OutboundKind classifies what an outbound message carried.
type OutboundKind string

const (
	OutboundKindText     OutboundKind = "text"
	OutboundKindDocument OutboundKind = "document"
	OutboundKindRich     OutboundKind = "rich"
	OutboundKindError    OutboundKind = "error"
)
