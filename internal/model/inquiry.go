package model

import "time"

// Inquiry is the generic record a completed workflow persists as its
// terminal action.
type Inquiry struct {
	ID            string    `db:"id" json:"id"`
	BotID         string    `db:"bot_id" json:"botId"`
	Channel       Channel   `db:"channel" json:"channel"`
	CustomerPhone *string   `db:"customer_phone" json:"customerPhone,omitempty"`
	Data          DataMap   `db:"data" json:"data"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

type CreateInquiryParams struct {
	BotID         string
	Channel       Channel
	CustomerPhone *string
	Data          DataMap
}
