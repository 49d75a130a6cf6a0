package sale

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	cart := filledCart(t)
	cart.SetSaleType("credit")
	cart.SetDetail("pickup at 5")
	ref := uuid.New()

	o, err := Assemble(testSnapshot(t), cart, ref)
	require.NoError(t, err)

	assert.Equal(t, ref, o.Reference)
	assert.Equal(t, "credit", o.SaleType)
	assert.Equal(t, "pickup at 5", o.Detail)

	require.Len(t, o.Products, 1)
	assert.Equal(t, int64(1), o.Products[0].ProductID)
	assertDec(t, "2.5", o.Products[0].Quantity)
	assertDec(t, "12.75", o.Products[0].Subtotal)

	require.Len(t, o.Combos, 1)
	assert.Equal(t, int64(9), o.Combos[0].ComboID)
	assert.Equal(t, int64(3), o.Combos[0].Quantity)

	assertDec(t, "72.75", o.Total())
}

func TestAssemble_EmptyOrder(t *testing.T) {
	_, err := Assemble(testSnapshot(t), &Cart{SaleType: DefaultSaleType}, uuid.New())
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestAssemble_OnlyCombos(t *testing.T) {
	cart := filledCart(t)
	require.NoError(t, cart.RemoveLine(LineRef{Kind: KindProduct}))

	o, err := Assemble(testSnapshot(t), cart, uuid.New())
	require.NoError(t, err)

	assert.Empty(t, o.Products)
	assertDec(t, "60.00", o.Total())
}

func TestAssemble_RejectsUnresolvedReference(t *testing.T) {
	cart := filledCart(t)
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindCombo}, FieldID, "404"))

	o, err := Assemble(testSnapshot(t), cart, uuid.New())
	assert.Nil(t, o)

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Problems, 1)
	assert.Equal(t, LineRef{Kind: KindCombo}, invalid.Problems[0].Ref)
	assert.Equal(t, FieldID, invalid.Problems[0].Field)
	assert.Contains(t, err.Error(), `combo "404" not found`)
}

func TestAssemble_RejectsBlankLine(t *testing.T) {
	cart := filledCart(t)
	cart.AddComboLine()

	_, err := Assemble(testSnapshot(t), cart, uuid.New())

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Problems, 2)
}

func TestAssemble_ListsEveryProblem(t *testing.T) {
	cart := filledCart(t)
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindProduct}, FieldQuantity, "-1"))
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindCombo}, FieldQuantity, "2.5"))

	_, err := Assemble(testSnapshot(t), cart, uuid.New())

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Problems, 2)
	assert.Equal(t, KindProduct, invalid.Problems[0].Ref.Kind)
	assert.Equal(t, KindCombo, invalid.Problems[1].Ref.Kind)
}

func TestAssemble_UsesSnapshotPricesNotEarlierQuote(t *testing.T) {
	cart := filledCart(t)
	stale := Calculate(testSnapshot(t), cart)
	assertDec(t, "72.75", stale.Total)

	repriced, err := catalogWithComboPrice(t, "25.00")
	require.NoError(t, err)

	o, err := Assemble(repriced, cart, uuid.New())
	require.NoError(t, err)
	assertDec(t, "87.75", o.Total())
}
