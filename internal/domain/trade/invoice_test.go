package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), InvoiceStatusPending)
	require.NoError(t, err)
	return inv
}

func TestInvoiceStatus(t *testing.T) {
	t.Run("valid statuses", func(t *testing.T) {
		assert.True(t, InvoiceStatusPending.IsValid())
		assert.True(t, InvoiceStatusCompleted.IsValid())
		assert.True(t, InvoiceStatusCancelled.IsValid())
		assert.False(t, InvoiceStatus("shipped").IsValid())
	})

	t.Run("transitions", func(t *testing.T) {
		assert.True(t, InvoiceStatusPending.CanTransitionTo(InvoiceStatusCompleted))
		assert.True(t, InvoiceStatusPending.CanTransitionTo(InvoiceStatusCancelled))
		assert.True(t, InvoiceStatusCompleted.CanTransitionTo(InvoiceStatusCancelled))
		assert.False(t, InvoiceStatusCompleted.CanTransitionTo(InvoiceStatusPending))
		assert.False(t, InvoiceStatusCancelled.CanTransitionTo(InvoiceStatusPending))
		assert.False(t, InvoiceStatusCancelled.CanTransitionTo(InvoiceStatusCompleted))
	})

	t.Run("parse", func(t *testing.T) {
		s, err := ParseInvoiceStatus("")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusCompleted, s)

		s, err = ParseInvoiceStatus("pending")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPending, s)

		_, err = ParseInvoiceStatus("refunded")
		assert.Error(t, err)
	})
}

func TestNewInvoice(t *testing.T) {
	t.Run("defaults to completed", func(t *testing.T) {
		inv, err := NewInvoice(uuid.New(), "")

		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusCompleted, inv.Status)
		assert.True(t, inv.Total.IsZero())
		assert.Empty(t, inv.Items)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*InvoiceCreatedEvent)
		assert.True(t, ok)
	})

	t.Run("fails without customer", func(t *testing.T) {
		_, err := NewInvoice(uuid.Nil, InvoiceStatusPending)
		assert.Error(t, err)
	})

	t.Run("fails with unknown status", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), InvoiceStatus("lost"))
		assert.Error(t, err)
	})
}

func TestInvoice_Items(t *testing.T) {
	t.Run("total is sum of quantity times price", func(t *testing.T) {
		inv := newTestInvoice(t)

		_, err := inv.AddItem(uuid.New(), "Apple", 3, decimal.RequireFromString("1.25"))
		require.NoError(t, err)
		_, err = inv.AddItem(uuid.New(), "Bread", 2, decimal.RequireFromString("3.40"))
		require.NoError(t, err)

		assert.Equal(t, "10.55", inv.Total.StringFixed(2))
		assert.Equal(t, 2, inv.ItemCount())
		assert.Equal(t, 5, inv.TotalQuantity())
	})

	t.Run("rejects duplicate product", func(t *testing.T) {
		inv := newTestInvoice(t)
		productID := uuid.New()

		_, err := inv.AddItem(productID, "Milk", 1, decimal.NewFromInt(2))
		require.NoError(t, err)
		_, err = inv.AddItem(productID, "Milk", 1, decimal.NewFromInt(2))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		inv := newTestInvoice(t)

		_, err := inv.AddItem(uuid.New(), "Milk", 0, decimal.NewFromInt(2))
		assert.Error(t, err)
	})

	t.Run("quantity update keeps price snapshot", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddItem(uuid.New(), "Cheese", 1, decimal.RequireFromString("7.99"))
		require.NoError(t, err)

		require.NoError(t, inv.UpdateItemQuantity(item.ID, 4))

		assert.Equal(t, "7.99", inv.GetItem(item.ID).Price.StringFixed(2))
		assert.Equal(t, "31.96", inv.Total.StringFixed(2))
	})

	t.Run("remove recalculates total", func(t *testing.T) {
		inv := newTestInvoice(t)
		first, _ := inv.AddItem(uuid.New(), "Rice", 1, decimal.NewFromInt(5))
		_, _ = inv.AddItem(uuid.New(), "Pasta", 1, decimal.NewFromInt(3))

		require.NoError(t, inv.RemoveItem(first.ID))

		assert.Equal(t, "3.00", inv.Total.StringFixed(2))
		assert.Nil(t, inv.GetItem(first.ID))
	})

	t.Run("missing item", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.Error(t, inv.RemoveItem(uuid.New()))
		assert.Error(t, inv.UpdateItemQuantity(uuid.New(), 1))
	})

	t.Run("cancelled invoice is read only", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, _ := inv.AddItem(uuid.New(), "Tea", 1, decimal.NewFromInt(4))
		require.NoError(t, inv.Cancel())

		_, err := inv.AddItem(uuid.New(), "Coffee", 1, decimal.NewFromInt(6))
		assert.Error(t, err)
		assert.Error(t, inv.UpdateItemQuantity(item.ID, 2))
		assert.Error(t, inv.RemoveItem(item.ID))
	})
}

func TestInvoice_ChangeStatus(t *testing.T) {
	t.Run("pending to completed emits event", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.ClearDomainEvents()

		require.NoError(t, inv.Complete())

		assert.Equal(t, InvoiceStatusCompleted, inv.Status)
		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*InvoiceStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, InvoiceStatusPending, changed.FromStatus)
		assert.Equal(t, InvoiceStatusCompleted, changed.ToStatus)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.ClearDomainEvents()

		require.NoError(t, inv.ChangeStatus(InvoiceStatusPending))
		assert.Empty(t, inv.GetDomainEvents())
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Cancel())

		err := inv.Complete()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot change invoice")
	})
}

func TestInvoice_Backdate(t *testing.T) {
	inv := newTestInvoice(t)
	_, _ = inv.AddItem(uuid.New(), "Eggs", 1, decimal.NewFromInt(3))
	at := time.Now().AddDate(0, 0, -30)

	inv.Backdate(at)

	assert.Equal(t, at, inv.CreatedAt)
	assert.Equal(t, at, inv.Items[0].CreatedAt)
}

func TestInvoice_FinalizeCreatedEvent(t *testing.T) {
	inv := newTestInvoice(t)
	_, _ = inv.AddItem(uuid.New(), "Butter", 2, decimal.RequireFromString("2.50"))

	inv.FinalizeCreatedEvent()

	created := inv.GetDomainEvents()[0].(*InvoiceCreatedEvent)
	assert.Equal(t, "5.00", created.Total.StringFixed(2))
	assert.Equal(t, 1, created.ItemCount)
}
