package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorlane/marketplace/internal/domain"
	"github.com/creatorlane/marketplace/internal/events"
	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

func newOrderService(orders *fakeOrderRepo) (*OrderService, *fakeDeliverableRepo) {
	deliverables := &fakeDeliverableRepo{orders: orders}
	svc := NewOrderService(OrderDependencies{
		OrderRepo:       orders,
		DeliverableRepo: deliverables,
		TicketRepo:      newFakeTicketRepo(),
		MessageRepo:     &fakeMessageRepo{},
		Dispatcher:      events.NewInMemoryDispatcher(nil),
	})
	return svc, deliverables
}

func pendingOrder(creatorID string) *domain.Order {
	return &domain.Order{
		ID:        "order-1",
		BrandID:   "brand-1",
		CreatorID: creatorID,
		Status:    domain.OrderStatusPending,
	}
}

func TestAcceptOrderFromPending(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	order, err := svc.AcceptOrder(context.Background(), "creator-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAccepted, order.Status)
}

func TestAcceptOrderAlreadyAcceptedConflicts(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusAccepted
	svc, _ := newOrderService(newFakeOrderRepo(order))

	_, err := svc.AcceptOrder(context.Background(), "creator-1", "order-1")
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.Equal(t, 409, domainErr.HTTPStatus)
}

func TestAcceptOrderWrongCreatorForbidden(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.AcceptOrder(context.Background(), "creator-2", "order-1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestRejectOrderRequiresMessage(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder("creator-1"))
	svc, _ := newOrderService(repo)

	_, err := svc.RejectOrder(context.Background(), "creator-1", "order-1", "  ")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	stored, getErr := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, getErr)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestRejectOrderStoresMessage(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder("creator-1"))
	svc, _ := newOrderService(repo)

	order, err := svc.RejectOrder(context.Background(), "creator-1", "order-1", "schedule conflict")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRejected, order.Status)
	require.NotNil(t, order.RejectionMessage)
	assert.Equal(t, "schedule conflict", *order.RejectionMessage)
}

func TestSubmitDeliverablesRejectsEmptyList(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.SubmitDeliverables(context.Background(), "creator-1", "order-1", nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestSubmitDeliverablesRejectsUnresolvableURL(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusAccepted
	svc, _ := newOrderService(newFakeOrderRepo(order))

	_, err := svc.SubmitDeliverables(context.Background(), "creator-1", "order-1", []DeliverableInput{
		{URL: "ftp://example.com/file.mp4", FileName: "file.mp4"},
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestSubmitDeliverablesMovesToReview(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusInProgress
	svc, deliverables := newOrderService(newFakeOrderRepo(order))

	updated, err := svc.SubmitDeliverables(context.Background(), "creator-1", "order-1", []DeliverableInput{
		{URL: "https://cdn.example.com/final.mp4", FileName: "final.mp4", FileType: "video/mp4", SizeBytes: 1024},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReview, updated.Status)
	assert.Len(t, updated.Deliverables, 1)

	stored, err := deliverables.ListByOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSubmitDeliverablesInvalidFromPending(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.SubmitDeliverables(context.Background(), "creator-1", "order-1", []DeliverableInput{
		{URL: "https://cdn.example.com/final.mp4"},
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}

func TestSubmitDeliverablesFailureLeavesNoRows(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusInProgress
	repo := newFakeOrderRepo(order)
	svc, deliverables := newOrderService(repo)
	deliverables.batchErr = errors.New("connection reset")

	_, err := svc.SubmitDeliverables(context.Background(), "creator-1", "order-1", []DeliverableInput{
		{URL: "https://cdn.example.com/a.mp4", FileName: "a.mp4"},
		{URL: "https://cdn.example.com/b.mp4", FileName: "b.mp4"},
	})
	require.Error(t, err)

	stored, err := deliverables.ListByOrder(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	current, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProgress, current.Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.UpdateStatus(context.Background(), AgentActor("agent-1"), "order-1", domain.OrderStatus("shipped"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusRejectsOutOfTableTransition(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.UpdateStatus(context.Background(), AgentActor("agent-1"), "order-1", domain.OrderStatusCompleted)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}

func TestUpdateStatusRejectsRejectedOverride(t *testing.T) {
	svc, _ := newOrderService(newFakeOrderRepo(pendingOrder("creator-1")))

	_, err := svc.UpdateStatus(context.Background(), AgentActor("agent-1"), "order-1", domain.OrderStatusRejected)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCancelOrderFromAnyNonTerminalState(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusReview
	svc, _ := newOrderService(newFakeOrderRepo(order))

	updated, err := svc.CancelOrder(context.Background(), AgentActor("agent-1"), "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
}

func TestCancelOrderTerminalStateConflicts(t *testing.T) {
	order := pendingOrder("creator-1")
	order.Status = domain.OrderStatusCompleted
	svc, _ := newOrderService(newFakeOrderRepo(order))

	_, err := svc.CancelOrder(context.Background(), AgentActor("agent-1"), "order-1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}

func TestConcurrentTransitionSurfacesConflict(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder("creator-1"))
	svc, _ := newOrderService(repo)

	// Another actor wins the race after the service read the order.
	applied, err := repo.UpdateStatusIfCurrent(context.Background(), "order-1", domain.OrderStatusPending, domain.OrderStatusCancelled, nil)
	require.NoError(t, err)
	require.True(t, applied)

	stale := pendingOrder("creator-1")
	_, err = svc.transition(context.Background(), stale, domain.OrderStatusAccepted, nil, AgentActor("agent-1"), events.EventOrderStatusChanged)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}
