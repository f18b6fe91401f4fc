// Package ai wraps the generative model used for intent classification and
// free-form replies. Both operations are best-effort: callers substitute
// static fallbacks on any error.
package ai

import "context"

// Intent is the classification result for one inbound message.
type Intent struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	Sentiment      string  `json:"sentiment"`
	SuggestedReply string  `json:"suggestedReply,omitempty"`
}

// Well-known intent labels the dispatcher acts on.
const (
	IntentBooking  = "booking"
	IntentLocation = "location"
	IntentOffTopic = "off_topic"
	IntentGeneral  = "general"
)

// Turn is one prior exchange supplied as reply context.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

type Client interface {
	// Classify labels the message with an intent, confidence and sentiment,
	// optionally suggesting a reply.
	Classify(ctx context.Context, businessName, message string) (Intent, error)
	// Reply generates a free-form answer given the message, the previously
	// detected intent label and recent turn history.
	Reply(ctx context.Context, businessName, message, prevIntent string, history []Turn) (string, error)
}
