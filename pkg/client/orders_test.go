package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, handler http.HandlerFunc) (*OrderController, *httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	session := NewSession(server.URL, WithToken("tok-1"))
	return NewOrderController(New(session)), server, &requests
}

func TestRejectWithEmptyMessageBlockedBeforeDispatch(t *testing.T) {
	controller, _, requests := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be dispatched")
	})

	_, err := controller.Reject(context.Background(), "order-1", "   ")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, requests.Load())
}

func TestSubmitDeliverablesEmptyListBlockedBeforeDispatch(t *testing.T) {
	controller, _, requests := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be dispatched")
	})

	_, err := controller.SubmitDeliverables(context.Background(), "order-1", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, requests.Load())
}

func TestSubmitDeliverablesUnresolvableURLBlockedBeforeDispatch(t *testing.T) {
	controller, _, requests := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be dispatched")
	})

	_, err := controller.SubmitDeliverables(context.Background(), "order-1", []Deliverable{
		{URL: "file:///tmp/out.mp4", FileName: "out.mp4"},
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, requests.Load())
}

func TestUpdateStatusUnknownValueBlockedBeforeDispatch(t *testing.T) {
	controller, _, requests := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be dispatched")
	})

	_, err := controller.UpdateStatus(context.Background(), "order-1", "shipped")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, requests.Load())
}

func TestAcceptAlreadyAcceptedSurfacesConflict(t *testing.T) {
	controller, _, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/order-1/accept", r.URL.Path)
		writeAPIError(w, http.StatusConflict, "INVALID_STATE", "order is not pending")
	})

	_, err := controller.Accept(context.Background(), "order-1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestAcceptDecodesOrder(t *testing.T) {
	controller, _, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		writeData(t, w, map[string]any{"id": "order-1", "status": "accepted"})
	})

	order, err := controller.Accept(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusAccepted, order.Status)
}

func TestRejectSendsMessage(t *testing.T) {
	controller, _, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/order-1/reject", r.URL.Path)
		writeData(t, w, map[string]any{"id": "order-1", "status": "rejected", "rejection_message": "too soon"})
	})

	order, err := controller.Reject(context.Background(), "order-1", "too soon")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRejected, order.Status)
	require.NotNil(t, order.RejectionMessage)
	assert.Equal(t, "too soon", *order.RejectionMessage)
}
