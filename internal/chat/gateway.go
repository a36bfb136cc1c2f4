package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlane/marketplace/internal/config"
	"github.com/creatorlane/marketplace/internal/domain"
)

// ChannelName returns the provider channel id for a ticket.
func ChannelName(ticketID string) string {
	return "ticket_" + ticketID
}

// CompositeUserID builds the provider-side user identifier.
func CompositeUserID(role domain.SenderRole, userID string) string {
	return fmt.Sprintf("%s_%s", role, userID)
}

// GatewayMessage is a message as the hosted provider reports it.
type GatewayMessage struct {
	ID          string `json:"message_id"`
	ChannelID   string `json:"channel_url"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	CustomType  string `json:"custom_type"`
	Data        string `json:"data"`
	CreatedAtMS int64  `json:"created_at"`
}

// Gateway is a thin pass-through to the hosted chat provider's platform API.
// No retry, backoff, or offline-queue logic; failures propagate to the caller.
type Gateway struct {
	cfg        config.ChatConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGateway constructs the provider adapter.
func NewGateway(cfg config.ChatConfig, logger *zap.Logger) *Gateway {
	return &Gateway{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether provider credentials are configured.
func (g *Gateway) Enabled() bool {
	return g.cfg.BaseURL != "" && g.cfg.APIKey != ""
}

// ConnectUser registers (or refreshes) the provider-side user and returns a
// session token for the realtime connection.
func (g *Gateway) ConnectUser(ctx context.Context, role domain.SenderRole, userID string) (string, time.Time, error) {
	compositeID := CompositeUserID(role, userID)
	var resp struct {
		Token     string `json:"token"`
		ExpiresMS int64  `json:"expires_at"`
	}
	body := map[string]any{
		"expires_in_seconds": int(g.cfg.TokenTTL().Seconds()),
	}
	path := fmt.Sprintf("/v3/users/%s/token", compositeID)
	if err := g.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", time.Time{}, err
	}
	return resp.Token, time.UnixMilli(resp.ExpiresMS), nil
}

// JoinChannel adds the user to the per-ticket channel, creating it on first join.
func (g *Gateway) JoinChannel(ctx context.Context, ticketID string, role domain.SenderRole, userID string) error {
	body := map[string]any{
		"channel_url": ChannelName(ticketID),
		"user_ids":    []string{CompositeUserID(role, userID)},
	}
	path := fmt.Sprintf("/v3/group_channels/%s/invite", ChannelName(ticketID))
	return g.do(ctx, http.MethodPost, path, body, nil)
}

// LeaveChannel removes the user from the per-ticket channel.
func (g *Gateway) LeaveChannel(ctx context.Context, ticketID string, role domain.SenderRole, userID string) error {
	body := map[string]any{
		"user_ids": []string{CompositeUserID(role, userID)},
	}
	path := fmt.Sprintf("/v3/group_channels/%s/leave", ChannelName(ticketID))
	return g.do(ctx, http.MethodPut, path, body, nil)
}

// MessageMeta travels in the provider frame's data field. Realtime consumers
// need it to route frames to the right sub-thread and to match optimistic
// sends back by client_ref.
type MessageMeta struct {
	SenderRole  domain.SenderRole `json:"sender_role"`
	ChannelType domain.ChannelTag `json:"channel_type"`
	ClientRef   string            `json:"client_ref,omitempty"`
}

// SendMessage posts a text message to a channel, tagged with the composite
// sender id, the custom message-type field, and the routing metadata.
func (g *Gateway) SendMessage(ctx context.Context, channelID, text, userID string, meta MessageMeta) (*GatewayMessage, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"message_type": "MESG",
		"custom_type":  string(domain.MessageTypeText),
		"user_id":      CompositeUserID(meta.SenderRole, userID),
		"message":      text,
		"data":         string(data),
	}
	var msg GatewayMessage
	path := fmt.Sprintf("/v3/group_channels/%s/messages", channelID)
	if err := g.do(ctx, http.MethodPost, path, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages lists the most recent messages on a channel, oldest first.
func (g *Gateway) GetMessages(ctx context.Context, channelID string, limit int) ([]GatewayMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp struct {
		Messages []GatewayMessage `json:"messages"`
	}
	path := fmt.Sprintf("/v3/group_channels/%s/messages?prev_limit=%d", channelID, limit)
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// GetUserChannels lists the channel ids the user is a member of.
func (g *Gateway) GetUserChannels(ctx context.Context, role domain.SenderRole, userID string) ([]string, error) {
	var resp struct {
		Channels []struct {
			ChannelURL string `json:"channel_url"`
		} `json:"channels"`
	}
	path := fmt.Sprintf("/v3/users/%s/my_group_channels", CompositeUserID(role, userID))
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	channels := make([]string, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		channels = append(channels, ch.ChannelURL)
	}
	return channels, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Token", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		g.logger.Warn("chat provider call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("chat provider: %s returned %d: %s", path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
