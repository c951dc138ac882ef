/*
client_test.go - Tests for the HTTP document client

Runs against the real router backed by an in-memory store, so the wire
contract is exercised on both sides. Ends with a coordinator driving the
client end to end.
*/
package client_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/client"
	"github.com/warp/billing-engine/store/sqlite"
)

func newTestBackend(t *testing.T) (*client.Client, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, billing.DefaultConfig(), "http://billing.test")
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	return client.New(server.URL, nil), store
}

func seedEvent(t *testing.T, store *sqlite.Store, beneficiaries []string) *billing.RentalEvent {
	t.Helper()
	event := &billing.RentalEvent{
		ID:        "event-1",
		Title:     "Spring gala",
		StartDate: billing.NewTimePoint(2026, 6, 1),
		EndDate:   billing.NewTimePoint(2026, 6, 3),
		Materials: []billing.LineItem{
			{Name: "Speaker", UnitPrice: billing.NewMoneyFromInt(100), Quantity: 2, Discountable: true},
		},
		Beneficiaries: beneficiaries,
	}
	require.NoError(t, store.SaveEvent(context.Background(), event))
	return event
}

func mustRate(t *testing.T, value float64) billing.DiscountRate {
	t.Helper()
	rate, err := billing.NewDiscountRate(decimal.NewFromFloat(value))
	require.NoError(t, err)
	return rate
}

func TestCreateEstimate_OverTheWire(t *testing.T) {
	c, store := newTestBackend(t)
	seedEvent(t, store, nil)

	doc, err := c.CreateEstimate(context.Background(), "event-1", mustRate(t, 10))
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, billing.EventID("event-1"), doc.EventID)
	assert.True(t, doc.IsEstimate())
	// 200/day * ratio 2.5 over 3 days
	assert.True(t, doc.GrandTotal.Value.Equal(decimal.NewFromInt(500)),
		"grand total: %s", doc.GrandTotal.Value)
	assert.True(t, doc.GrandTotalWithDiscount.Value.Equal(decimal.NewFromInt(450)),
		"after discount: %s", doc.GrandTotalWithDiscount.Value)
}

func TestCreateEstimate_UnknownEventIsRemoteError(t *testing.T) {
	c, _ := newTestBackend(t)

	_, err := c.CreateEstimate(context.Background(), "missing", billing.ZeroRate())
	require.Error(t, err)
	assert.True(t, billing.IsRemote(err), "expected a remote operation error, got %v", err)
	assert.Contains(t, err.Error(), "Event not found")
}

func TestDeleteEstimate_ReturnsServerID(t *testing.T) {
	c, store := newTestBackend(t)
	seedEvent(t, store, nil)

	doc, err := c.CreateEstimate(context.Background(), "event-1", mustRate(t, 5))
	require.NoError(t, err)

	deletedID, err := c.DeleteEstimate(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, deletedID)

	event, err := store.GetEvent(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Empty(t, event.Estimates)
}

func TestCreateBill_NonBillableIsRemoteError(t *testing.T) {
	c, store := newTestBackend(t)
	seedEvent(t, store, nil)

	_, err := c.CreateBill(context.Background(), "event-1", billing.ZeroRate())
	require.Error(t, err)
	assert.True(t, billing.IsRemote(err))
}

func TestCoordinator_EndToEnd(t *testing.T) {
	// A coordinator driving the HTTP client against the real backend.
	c, store := newTestBackend(t)
	event := seedEvent(t, store, []string{"City of Lyon"})

	confirm := billing.ConfirmerFunc(func(ctx context.Context, kind billing.DocumentKind) bool {
		return true
	})
	coord, err := billing.NewCoordinator(event, c, confirm, billing.DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, coord.SetDiscountRate(decimal.NewFromInt(10)))

	coord.CreateEstimate(ctx)
	require.Nil(t, coord.LastError(), "estimate creation failed: %v", coord.LastError())
	require.NotNil(t, coord.CurrentEstimate())

	coord.CreateBill(ctx)
	require.Nil(t, coord.LastError(), "bill creation failed: %v", coord.LastError())
	require.NotNil(t, coord.CurrentBill())
	assert.NotEqual(t, billing.NoBillPDF, coord.PDFURL("http://billing.test"))

	estimateID := coord.CurrentEstimate().ID
	coord.DeleteEstimate(ctx, estimateID)
	require.Nil(t, coord.LastError(), "estimate deletion failed: %v", coord.LastError())
	assert.Nil(t, coord.CurrentEstimate())

	// The store agrees: no estimates remain, the bill is permanent.
	stored, err := store.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Estimates)
	assert.Len(t, stored.Bills, 1)
}
