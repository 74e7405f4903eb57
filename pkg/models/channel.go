package models

import "time"

// Channel is a supported external platform, e.g. "Telegram" or "Facebook".
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"       validate:"required"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelConnection is an account a user connected on a Channel. Flow nodes
// address connections through their channel_ids config.
type ChannelConnection struct {
	ID          string         `json:"id"`
	ChannelID   string         `json:"channel_id"   validate:"required"`
	Owner       string         `json:"owner"`
	AccountName string         `json:"account_name"`
	Credentials map[string]any `json:"credentials,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
}
