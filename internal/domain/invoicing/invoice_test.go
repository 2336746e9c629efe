package invoicing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/domain/shared/valueobject"
)

func TestInvoiceType_IsValid(t *testing.T) {
	tests := []struct {
		invoiceType InvoiceType
		expected    bool
	}{
		{TypeInvoice, true},
		{TypeAdvance, true},
		{TypeProforma, true},
		{TypeVATCreditNote, true},
		{InvoiceType("RECEIPT"), false},
		{InvoiceType(""), false},
	}

	for _, tc := range tests {
		t.Run(string(tc.invoiceType), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.invoiceType.IsValid())
		})
	}
}

func TestInvoiceStatus_IsSettled(t *testing.T) {
	tests := []struct {
		status   InvoiceStatus
		expected bool
	}{
		{StatusNew, false},
		{StatusSent, false},
		{StatusReturned, false},
		{StatusCanceled, true},
		{StatusPaid, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.IsSettled())
		})
	}
}

func TestNewInvoice(t *testing.T) {
	t.Run("valid draft", func(t *testing.T) {
		inv, err := NewInvoice(testDraft())
		require.NoError(t, err)

		assert.Equal(t, TypeInvoice, inv.Type)
		assert.Equal(t, StatusNew, inv.Status)
		assert.Equal(t, valueobject.EUR, inv.Currency)
		assert.Equal(t, DeliveryPersonalPickup, inv.DeliveryMethod)
		assert.Zero(t, inv.Number)
		assert.Empty(t, inv.FullNumber)
		assert.NotEqual(t, "", inv.ID.String())

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventInvoiceCreated, events[0].EventType())
	})

	t.Run("defaults type to INVOICE", func(t *testing.T) {
		draft := testDraft()
		draft.Type = ""
		inv, err := NewInvoice(draft)
		require.NoError(t, err)
		assert.Equal(t, TypeInvoice, inv.Type)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		draft := testDraft()
		draft.Type = "RECEIPT"
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})

	t.Run("rejects missing supplier name", func(t *testing.T) {
		draft := testDraft()
		draft.Supplier.Name = ""
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})

	t.Run("rejects missing customer name", func(t *testing.T) {
		draft := testDraft()
		draft.Customer.Name = ""
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})

	t.Run("rejects missing dates", func(t *testing.T) {
		draft := testDraft()
		draft.DateDue = time.Time{}
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})

	t.Run("rejects negative credit", func(t *testing.T) {
		draft := testDraft()
		draft.Credit = decimal.NewFromInt(-1)
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		draft := testDraft()
		draft.PaymentMethod = "BARTER"
		_, err := NewInvoice(draft)
		assert.Error(t, err)
	})
}

func TestInvoice_SetNumber(t *testing.T) {
	t.Run("assigns once", func(t *testing.T) {
		inv := testInvoice(t)
		require.False(t, inv.HasNumber())

		err := inv.SetNumber(8, "2024/8")
		require.NoError(t, err)
		assert.True(t, inv.HasNumber())
		assert.Equal(t, int64(8), inv.Number)
		assert.Equal(t, "2024/8", inv.FullNumber)

		events := inv.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventInvoiceNumberAssigned, events[1].EventType())
	})

	t.Run("rejects reassignment", func(t *testing.T) {
		inv := testInvoice(t)
		require.NoError(t, inv.SetNumber(8, "2024/8"))

		err := inv.SetNumber(9, "2024/9")
		assert.ErrorIs(t, err, shared.ErrNumberAssigned)
		assert.Equal(t, int64(8), inv.Number)
		assert.Equal(t, "2024/8", inv.FullNumber)
	})

	t.Run("rejects non-positive number", func(t *testing.T) {
		inv := testInvoice(t)
		assert.Error(t, inv.SetNumber(0, "2024/0"))
		assert.Error(t, inv.SetNumber(-1, "2024/-1"))
	})

	t.Run("rejects empty full number", func(t *testing.T) {
		inv := testInvoice(t)
		assert.Error(t, inv.SetNumber(1, ""))
	})
}

func TestInvoice_AddItem_Ordering(t *testing.T) {
	inv := testInvoice(t)

	heavy, err := NewItem("Heavy", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, nil, UnitPieces, 5)
	require.NoError(t, err)
	light, err := NewItem("Light", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, nil, UnitPieces, 1)
	require.NoError(t, err)
	second, err := NewItem("Second light", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, nil, UnitPieces, 1)
	require.NoError(t, err)
	second.CreatedAt = light.CreatedAt.Add(time.Second)

	inv.AddItem(*heavy)
	inv.AddItem(*second)
	inv.AddItem(*light)

	require.Len(t, inv.Items, 3)
	assert.Equal(t, "Light", inv.Items[0].Title)
	assert.Equal(t, "Second light", inv.Items[1].Title)
	assert.Equal(t, "Heavy", inv.Items[2].Title)

	for _, item := range inv.Items {
		assert.Equal(t, inv.ID, item.InvoiceID)
	}
}

func TestInvoice_StatusTransitions(t *testing.T) {
	t.Run("MarkSent records send time once", func(t *testing.T) {
		inv := testInvoice(t)
		require.Nil(t, inv.DateSent)

		inv.MarkSent()
		require.NotNil(t, inv.DateSent)
		first := *inv.DateSent

		inv.MarkPaid()
		inv.MarkSent()
		assert.Equal(t, first, *inv.DateSent)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		inv := testInvoice(t)
		inv.ClearDomainEvents()

		inv.MarkPaid()
		inv.MarkPaid()

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*InvoiceStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusNew, changed.PreviousStatus)
		assert.Equal(t, StatusPaid, changed.NewStatus)
	})

	t.Run("full lifecycle", func(t *testing.T) {
		inv := testInvoice(t)
		inv.MarkSent()
		assert.Equal(t, StatusSent, inv.Status)
		inv.MarkReturned()
		assert.Equal(t, StatusReturned, inv.Status)
		inv.MarkCanceled()
		assert.Equal(t, StatusCanceled, inv.Status)
	})
}

func TestInvoice_GetCreditMoney(t *testing.T) {
	draft := testDraft()
	draft.Credit = decimal.NewFromFloat(12.50)
	draft.Currency = valueobject.CZK
	inv, err := NewInvoice(draft)
	require.NoError(t, err)

	money := inv.GetCreditMoney()
	assert.Equal(t, valueobject.CZK, money.Currency())
	assert.True(t, decimal.NewFromFloat(12.50).Equal(money.Amount()))
}

func TestNewItem_Validation(t *testing.T) {
	one := decimal.NewFromInt(1)

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := NewItem("", one, one, decimal.Zero, nil, UnitPieces, 0)
		assert.Error(t, err)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewItem("Line", decimal.NewFromInt(-1), one, decimal.Zero, nil, UnitPieces, 0)
		assert.Error(t, err)
	})

	t.Run("rejects discount out of range", func(t *testing.T) {
		_, err := NewItem("Line", one, one, decimal.NewFromInt(101), nil, UnitPieces, 0)
		assert.Error(t, err)
		_, err = NewItem("Line", one, one, decimal.NewFromInt(-1), nil, UnitPieces, 0)
		assert.Error(t, err)
	})

	t.Run("rejects weight out of range", func(t *testing.T) {
		_, err := NewItem("Line", one, one, decimal.Zero, nil, UnitPieces, MaxItemWeight+1)
		assert.Error(t, err)
		_, err = NewItem("Line", one, one, decimal.Zero, nil, UnitPieces, -1)
		assert.Error(t, err)
	})

	t.Run("defaults unit to pieces", func(t *testing.T) {
		item, err := NewItem("Line", one, one, decimal.Zero, nil, "", 0)
		require.NoError(t, err)
		assert.Equal(t, UnitPieces, item.Unit)
	})

	t.Run("negative price is allowed for corrections", func(t *testing.T) {
		item, err := NewItem("Correction", one, decimal.NewFromInt(-10), decimal.Zero, nil, UnitPieces, 0)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(-10).Equal(item.Subtotal()))
	})
}

func TestItem_ResolveTaxRate(t *testing.T) {
	one := decimal.NewFromInt(1)

	t.Run("fills a missing rate once", func(t *testing.T) {
		item, err := NewItem("Line", one, one, decimal.Zero, nil, UnitPieces, 0)
		require.NoError(t, err)
		require.False(t, item.HasTaxRate())

		assert.True(t, item.ResolveTaxRate(decimal.NewFromInt(20)))
		require.True(t, item.HasTaxRate())
		assert.True(t, decimal.NewFromInt(20).Equal(*item.TaxRate))

		assert.False(t, item.ResolveTaxRate(decimal.NewFromInt(10)))
		assert.True(t, decimal.NewFromInt(20).Equal(*item.TaxRate))
	})

	t.Run("explicit zero rate is never overwritten", func(t *testing.T) {
		zero := decimal.Zero
		item, err := NewItem("Line", one, one, decimal.Zero, &zero, UnitPieces, 0)
		require.NoError(t, err)
		require.True(t, item.HasTaxRate())

		assert.False(t, item.ResolveTaxRate(decimal.NewFromInt(20)))
		assert.True(t, item.TaxRate.IsZero())
	})
}
