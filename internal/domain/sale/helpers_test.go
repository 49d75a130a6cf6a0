package sale

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

// --- Mock implementations ---

type mockSource struct {
	snap *catalog.Snapshot
	err  error
}

func (m *mockSource) Snapshot(_ context.Context) (*catalog.Snapshot, error) {
	return m.snap, m.err
}

type mockGateway struct {
	mu      sync.Mutex
	orders  []*Order
	receipt *Receipt
	err     error

	// block, when set, holds Submit until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (m *mockGateway) Submit(ctx context.Context, o *Order) (*Receipt, error) {
	m.mu.Lock()
	m.orders = append(m.orders, o)
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	r := Receipt{SaleID: "42", Message: "Venta creada"}
	if m.receipt != nil {
		r = *m.receipt
	}
	r.Reference = o.Reference
	return &r, nil
}

func (m *mockGateway) submitted() []*Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Order(nil), m.orders...)
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// testSnapshot holds product 1 (5.00 / 2.75), product 2 (7.50 / 4.00), an
// inactive product 4, combo 9 (20.00) and an inactive combo 11.
func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot(
		[]catalog.Product{
			{ID: 1, Name: "Pork loin", PricePerWholeUnit: dec("5.00"), PricePerHalfUnit: dec("2.75"), Active: true},
			{ID: 2, Name: "Beef brisket", PricePerWholeUnit: dec("7.50"), PricePerHalfUnit: dec("4.00"), Active: true},
			{ID: 4, Name: "Smoked sausage", PricePerWholeUnit: dec("4.60"), PricePerHalfUnit: dec("2.40"), Active: false},
		},
		[]catalog.Combo{
			{ID: 9, Name: "Family grill", Price: dec("20.00"), Active: true,
				Constituents: []catalog.Constituent{{ProductID: 1, Quantity: 2}}},
			{ID: 11, Name: "Retired box", Price: dec("15.00"), Active: false},
		},
	)
	require.NoError(t, err)
	return snap
}

// filledCart returns a cart with product 1 at 2.5 and combo 9 at 3.
func filledCart(t *testing.T) *Cart {
	t.Helper()
	c := NewCart()
	require.NoError(t, c.SetLineField(LineRef{Kind: KindProduct}, FieldID, "1"))
	require.NoError(t, c.SetLineField(LineRef{Kind: KindProduct}, FieldQuantity, "2.5"))
	require.NoError(t, c.SetLineField(LineRef{Kind: KindCombo}, FieldID, "9"))
	require.NoError(t, c.SetLineField(LineRef{Kind: KindCombo}, FieldQuantity, "3"))
	return c
}

// catalogWithComboPrice is testSnapshot's product 1 and combo 9 with combo 9
// repriced.
func catalogWithComboPrice(t *testing.T, price string) (*catalog.Snapshot, error) {
	t.Helper()
	return catalog.NewSnapshot(
		[]catalog.Product{
			{ID: 1, Name: "Pork loin", PricePerWholeUnit: dec("5.00"), PricePerHalfUnit: dec("2.75"), Active: true},
		},
		[]catalog.Combo{
			{ID: 9, Name: "Family grill", Price: dec(price), Active: true},
		},
	)
}
