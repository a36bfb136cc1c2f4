package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/repository"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]*domain.Order)}
	for _, order := range orders {
		if order.ID == "" {
			order.ID = uuid.NewString()
		}
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) ListWithFilter(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.orders {
		if filter.BrandID != nil && order.BrandID != *filter.BrandID {
			continue
		}
		if filter.CreatorID != nil && order.CreatorID != *filter.CreatorID {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusIfCurrent(_ context.Context, id string, current, next domain.OrderStatus, rejectionMessage *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if order.Status != current {
		return false, nil
	}
	order.Status = next
	if rejectionMessage != nil {
		order.RejectionMessage = rejectionMessage
	}
	return true, nil
}

type fakeDeliverableRepo struct {
	mu       sync.Mutex
	orders   *fakeOrderRepo
	items    []domain.Deliverable
	batchErr error
}

func (r *fakeDeliverableRepo) Create(_ context.Context, deliverable *domain.Deliverable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deliverable.ID == "" {
		deliverable.ID = uuid.NewString()
	}
	r.items = append(r.items, *deliverable)
	return nil
}

func (r *fakeDeliverableRepo) CreateBatchWithTransition(ctx context.Context, orderID string, deliverables []*domain.Deliverable, current, next domain.OrderStatus) (bool, error) {
	if r.batchErr != nil {
		return false, r.batchErr
	}
	if r.orders != nil {
		applied, err := r.orders.UpdateStatusIfCurrent(ctx, orderID, current, next, nil)
		if err != nil || !applied {
			return applied, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, deliverable := range deliverables {
		if deliverable.ID == "" {
			deliverable.ID = uuid.NewString()
		}
		deliverable.OrderID = orderID
		r.items = append(r.items, *deliverable)
	}
	return true, nil
}

func (r *fakeDeliverableRepo) ListByOrder(_ context.Context, orderID string) ([]domain.Deliverable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Deliverable
	for _, item := range r.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeTicketRepo struct {
	mu            sync.Mutex
	tickets       map[string]*domain.Ticket
	getByOrderErr error
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		repo.tickets[ticket.ID] = ticket
	}
	return repo
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByOrderID(_ context.Context, orderID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getByOrderErr != nil {
		return nil, r.getByOrderErr
	}
	for _, ticket := range r.tickets {
		if ticket.OrderID == orderID {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Channel = msg.EffectiveChannel()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicketChannel(_ context.Context, ticketID string, channel domain.ChannelTag) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID != ticketID {
			continue
		}
		if msg.EffectiveChannel() == channel || msg.SenderRole == domain.SenderRoleSystem {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeAgentRepo struct {
	mu          sync.Mutex
	agents      map[string]*domain.Agent
	openTickets map[string]int
}

func newFakeAgentRepo(agents ...*domain.Agent) *fakeAgentRepo {
	repo := &fakeAgentRepo{agents: make(map[string]*domain.Agent), openTickets: make(map[string]int)}
	for _, agent := range agents {
		if agent.ID == "" {
			agent.ID = uuid.NewString()
		}
		repo.agents[agent.ID] = agent
	}
	return repo
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) Update(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, agent := range r.agents {
		if agent.Email == email {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) ListActive(_ context.Context) ([]domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Agent
	for _, agent := range r.agents {
		if agent.Active {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) CountOpenTickets(_ context.Context, agentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openTickets[agentID], nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	r.entries = append(r.entries, *history)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}
