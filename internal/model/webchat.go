package model

import "time"

// WebChatSession is the identity of one embedded-widget visitor. Its
// session key doubles as the conversation user key on the web channel.
type WebChatSession struct {
	ID         string    `db:"id" json:"id"`
	BotID      string    `db:"bot_id" json:"botId"`
	SessionKey string    `db:"session_key" json:"sessionKey"`
	ExpiresAt  time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type CreateWebChatSessionParams struct {
	BotID      string
	SessionKey string
	ExpiresAt  time.Time
}
