package dto

import "time"

// ChatTokenResponse carries the hosted-provider session token.
type ChatTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
}
