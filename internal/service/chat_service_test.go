package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creatorlane/marketplace/internal/chat"
	"github.com/creatorlane/marketplace/internal/config"
	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

func newChatService(t *testing.T, tickets *fakeTicketRepo, handler http.HandlerFunc) (*ChatService, events.Dispatcher) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gateway := chat.NewGateway(config.ChatConfig{
		BaseURL:         server.URL,
		APIKey:          "api-key",
		TokenTTLMinutes: 60,
	}, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewChatService(ChatDependencies{
		Gateway:    gateway,
		TicketRepo: tickets,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, dispatcher
}

func TestMirroredMessageCarriesChannelAndClientRef(t *testing.T) {
	var body map[string]any
	svc, dispatcher := newChatService(t, newFakeTicketRepo(), func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/group_channels/ticket_ticket-1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(chat.GatewayMessage{ID: "m1"})
	})
	svc.RegisterHandlers()

	agentID := "agent-1"
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: "ticket-1",
		Actor:    events.Actor{Type: domain.SubjectTypeAgent, AgentID: &agentID},
		Payload: events.TicketMessageAddedPayload{
			MessageID:  "msg-1",
			SenderRole: domain.SenderRoleAgent,
			Channel:    domain.ChannelCreatorAgent,
			Body:       "done, take a look",
			ClientRef:  "ref-9",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, body)

	assert.Equal(t, "agent_agent-1", body["user_id"])
	var meta chat.MessageMeta
	require.NoError(t, json.Unmarshal([]byte(body["data"].(string)), &meta))
	assert.Equal(t, domain.SenderRoleAgent, meta.SenderRole)
	assert.Equal(t, domain.ChannelCreatorAgent, meta.ChannelType)
	assert.Equal(t, "ref-9", meta.ClientRef)
}

func TestHistoryRequiresTicketAccess(t *testing.T) {
	svc, _ := newChatService(t, newFakeTicketRepo(supportTicket()), func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []chat.GatewayMessage{
			{ID: "m1", ChannelID: "ticket_ticket-1", Message: "hello"},
		}})
	})

	stranger := AccountPrincipal(&domain.Account{ID: "brand-9", Role: domain.AccountRoleBrand})
	_, err := svc.History(context.Background(), stranger, "ticket-1", 50)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	messages, err := svc.History(context.Background(), brandPrincipal(), "ticket-1", 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
}
