package service

import (
	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
)

// Principal identifies the caller for service-level authorization. Exactly
// one of Account or Agent is set.
type Principal struct {
	Role    domain.SenderRole
	Account *domain.Account
	Agent   *domain.Agent
}

// AccountPrincipal wraps a brand or creator account.
func AccountPrincipal(account *domain.Account) Principal {
	return Principal{Role: account.SenderRole(), Account: account}
}

// AgentPrincipal wraps a support agent.
func AgentPrincipal(agent *domain.Agent) Principal {
	return Principal{Role: domain.SenderRoleAgent, Agent: agent}
}

// SubjectID returns the caller's id.
func (p Principal) SubjectID() string {
	if p.Agent != nil {
		return p.Agent.ID
	}
	if p.Account != nil {
		return p.Account.ID
	}
	return ""
}

// CanAccessTicket reports whether the caller may see the ticket. Agents see
// every ticket; accounts only their own.
func (p Principal) CanAccessTicket(ticket *domain.Ticket) bool {
	if p.Agent != nil {
		return true
	}
	if p.Account == nil {
		return false
	}
	return ticket.BrandID == p.Account.ID || ticket.CreatorID == p.Account.ID
}

// ForcedChannel pins accounts to their own sub-thread. Agents choose the
// channel explicitly, so no forcing applies.
func (p Principal) ForcedChannel() (domain.ChannelTag, bool) {
	if p.Account == nil {
		return "", false
	}
	if p.Account.Role == domain.AccountRoleCreator {
		return domain.ChannelCreatorAgent, true
	}
	return domain.ChannelBrandAgent, true
}

// Actor converts the principal into event actor metadata.
func (p Principal) Actor() events.Actor {
	if p.Agent != nil {
		return AgentActor(p.Agent.ID)
	}
	if p.Account != nil {
		return AccountActor(p.Account.ID)
	}
	return events.Actor{}
}
