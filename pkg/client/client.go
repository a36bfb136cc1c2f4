package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Ticket is the client-side view of a support ticket.
type Ticket struct {
	ID              string    `json:"id"`
	ExternalKey     string    `json:"external_key"`
	OrderID         string    `json:"order_id"`
	BrandID         string    `json:"brand_id"`
	CreatorID       string    `json:"creator_id"`
	AssignedAgentID *string   `json:"assigned_agent_id"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	Subject         string    `json:"subject"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Deliverable is one submitted file descriptor.
type Deliverable struct {
	ID        string    `json:"id,omitempty"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Order is the client-side view of an order.
type Order struct {
	ID                     string        `json:"id"`
	BrandID                string        `json:"brand_id"`
	CreatorID              string        `json:"creator_id"`
	PackageID              string        `json:"package_id"`
	Quantity               int           `json:"quantity"`
	Currency               string        `json:"currency"`
	TotalAmountCents       int64         `json:"total_amount_cents"`
	Status                 string        `json:"status"`
	RejectionMessage       *string       `json:"rejection_message,omitempty"`
	AdditionalInstructions string        `json:"additional_instructions"`
	ReferenceLinks         []string      `json:"reference_links"`
	DeliveryEstimateDays   *int          `json:"delivery_estimate_days,omitempty"`
	Deliverables           []Deliverable `json:"deliverables"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// Agent is the CRM agent listing entry.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Active      bool   `json:"active"`
	OpenTickets int    `json:"open_tickets"`
}

// ChatToken is a hosted chat provider session token.
type ChatToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ChannelID string    `json:"channel_id,omitempty"`
}

// SendMessageInput is a new ticket message. MessageText is duplicated into
// the legacy message field on the wire.
type SendMessageInput struct {
	MessageText string `json:"message_text"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	SenderRole  string `json:"sender_role"`
	ChannelType string `json:"channel_type"`
	ClientRef   string `json:"client_ref,omitempty"`
}

// TicketQuery filters ticket listings.
type TicketQuery struct {
	Status   string
	Priority string
	Search   string
	Page     int
	PageSize int
}

// Client issues typed REST calls through an injected session.
type Client struct {
	session *Session
}

// New wraps a session in a typed API client.
func New(session *Session) *Client {
	return &Client{session: session}
}

// Session exposes the underlying auth session.
func (c *Client) Session() *Session {
	return c.session
}

// Me fetches the caller's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.session.Do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListTickets fetches CRM tickets matching the query.
func (c *Client) ListTickets(ctx context.Context, query TicketQuery) ([]Ticket, error) {
	params := url.Values{}
	if query.Status != "" {
		params.Set("status", query.Status)
	}
	if query.Priority != "" {
		params.Set("priority", query.Priority)
	}
	if query.Search != "" {
		params.Set("search", query.Search)
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(query.PageSize))
	}
	var tickets []Ticket
	if err := c.session.Do(ctx, http.MethodGet, "/api/crm/tickets", params, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket fetches one ticket with its history.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	var ticket Ticket
	if err := c.session.Do(ctx, http.MethodGet, "/api/crm/tickets/"+ticketID, nil, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetMessages fetches the server message history for one ticket channel.
func (c *Client) GetMessages(ctx context.Context, ticketID, channelType string) ([]Message, error) {
	params := url.Values{}
	if channelType != "" {
		params.Set("channelType", channelType)
	}
	var messages []Message
	if err := c.session.Do(ctx, http.MethodGet, "/api/crm/tickets/"+ticketID+"/messages", params, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts one message to a ticket thread.
func (c *Client) SendMessage(ctx context.Context, ticketID string, input SendMessageInput) (*Message, error) {
	if input.Message == "" {
		input.Message = input.MessageText
	}
	if input.MessageType == "" {
		input.MessageType = "text"
	}
	var msg Message
	if err := c.session.Do(ctx, http.MethodPost, "/api/crm/tickets/"+ticketID+"/messages", nil, input, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateTicketStatus moves a ticket through its lifecycle.
func (c *Client) UpdateTicketStatus(ctx context.Context, ticketID, status, comment string) (*Ticket, error) {
	payload := map[string]string{"status": status, "comment": comment}
	var ticket Ticket
	if err := c.session.Do(ctx, http.MethodPut, "/api/crm/tickets/"+ticketID+"/status", nil, payload, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketPriority changes a ticket's priority.
func (c *Client) UpdateTicketPriority(ctx context.Context, ticketID, priority string) (*Ticket, error) {
	payload := map[string]string{"priority": priority}
	var ticket Ticket
	if err := c.session.Do(ctx, http.MethodPut, "/api/crm/tickets/"+ticketID+"/priority", nil, payload, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// AssignTicket assigns a ticket to an agent; empty agentID self-assigns.
func (c *Client) AssignTicket(ctx context.Context, ticketID, agentID string) (*Ticket, error) {
	payload := map[string]string{"agent_id": agentID}
	var ticket Ticket
	if err := c.session.Do(ctx, http.MethodPut, "/api/crm/tickets/"+ticketID+"/assign", nil, payload, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListAgents fetches the agent roster with open-ticket counts.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.session.Do(ctx, http.MethodGet, "/api/crm/agents", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.session.Do(ctx, http.MethodGet, "/api/orders/"+orderID, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches the caller's orders, optionally filtered by status.
func (c *Client) ListOrders(ctx context.Context, statuses ...string) ([]Order, error) {
	params := url.Values{}
	if len(statuses) > 0 {
		params.Set("status", strings.Join(statuses, ","))
	}
	var orders []Order
	if err := c.session.Do(ctx, http.MethodGet, "/api/orders", params, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// OpenTicket opens (or returns the existing) support ticket for an order.
func (c *Client) OpenTicket(ctx context.Context, orderID, subject string) (*Ticket, error) {
	payload := map[string]string{"subject": subject}
	var ticket Ticket
	if err := c.session.Do(ctx, http.MethodPost, "/api/orders/"+orderID+"/ticket", nil, payload, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetChatToken fetches a hosted chat session token for the caller.
func (c *Client) GetChatToken(ctx context.Context) (*ChatToken, error) {
	var token ChatToken
	if err := c.session.Do(ctx, http.MethodGet, "/api/chat/token", nil, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// JoinTicketChannel joins the realtime channel backing a ticket.
func (c *Client) JoinTicketChannel(ctx context.Context, ticketID string) error {
	return c.session.Do(ctx, http.MethodPost, "/api/chat/tickets/"+ticketID+"/join", nil, nil, nil)
}

// LeaveTicketChannel leaves the realtime channel backing a ticket.
func (c *Client) LeaveTicketChannel(ctx context.Context, ticketID string) error {
	return c.session.Do(ctx, http.MethodPost, "/api/chat/tickets/"+ticketID+"/leave", nil, nil, nil)
}

// GetChatHistory fetches the recent provider-side messages for a ticket
// channel, mapped into the client message shape.
func (c *Client) GetChatHistory(ctx context.Context, ticketID string, limit int) ([]Message, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var frames []pushFrame
	if err := c.session.Do(ctx, http.MethodGet, "/api/chat/tickets/"+ticketID+"/messages", params, nil, &frames); err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(frames))
	for _, frame := range frames {
		messages = append(messages, frameToMessage(frame, ticketID))
	}
	return messages, nil
}

// GetChatChannels lists the realtime channels the caller belongs to.
func (c *Client) GetChatChannels(ctx context.Context) ([]string, error) {
	var channels []string
	if err := c.session.Do(ctx, http.MethodGet, "/api/chat/channels", nil, nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}
