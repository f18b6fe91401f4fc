package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is a free-form JSONB bag attached to message audit rows.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}
	return json.Unmarshal(raw, m)
}

// InboundMessage is one received user message, persisted before dispatch.
type InboundMessage struct {
	ID        string    `db:"id" json:"id"`
	BotID     string    `db:"bot_id" json:"botId"`
	UserKey   string    `db:"user_key" json:"userKey"`
	Channel   Channel   `db:"channel" json:"channel"`
	Content   string    `db:"content" json:"content"`
	Metadata  Metadata  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateInboundMessageParams struct {
	BotID    string
	UserKey  string
	Channel  Channel
	Content  string
	Metadata Metadata
}

// OutboundMessage is the audit record every adapter send produces, written
// regardless of downstream transport success.
type OutboundMessage struct {
	ID           string         `db:"id" json:"id"`
	BotID        string         `db:"bot_id" json:"botId"`
	UserKey      string         `db:"user_key" json:"userKey"`
	Channel      Channel        `db:"channel" json:"channel"`
	Kind         OutboundKind   `db:"kind" json:"kind"`
	Content      string         `db:"content" json:"content"`
	Metadata     Metadata       `db:"metadata" json:"metadata,omitempty"`
	Status       OutboundStatus `db:"status" json:"status"`
	ErrorMessage *string        `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

type CreateOutboundMessageParams struct {
	BotID        string
	UserKey      string
	Channel      Channel
	Kind         OutboundKind
	Content      string
	Metadata     Metadata
	Status       OutboundStatus
	ErrorMessage *string
}
