package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestProductSubtotal(t *testing.T) {
	whole, half := dec("5.00"), dec("2.75")

	for _, tt := range []struct {
		qty  string
		want string
	}{
		// Whole quantities.
		{"0", "0"},
		{"1", "5.00"},
		{"4", "20.00"},
		// Exactly one half unit on top.
		{"0.5", "2.75"},
		{"2.5", "12.75"},
		{"10.50", "52.75"},
		// Any other remainder is not charged.
		{"1.3", "5.00"},
		{"0.25", "0"},
		{"2.75", "10.00"},
		{"3.499", "15.00"},
		{"3.501", "15.00"},
	} {
		t.Run(tt.qty, func(t *testing.T) {
			assertDec(t, tt.want, ProductSubtotal(dec(tt.qty), whole, half))
		})
	}
}

func TestProductSubtotal_HalfPriceIndependentOfWhole(t *testing.T) {
	// A half unit is priced on its own rate, not as half the whole rate.
	assertDec(t, "7.00", ProductSubtotal(dec("1.5"), dec("3.00"), dec("4.00")))
}

func TestComboSubtotal(t *testing.T) {
	assertDec(t, "60.00", ComboSubtotal(dec("20.00"), 3))
	assertDec(t, "0", ComboSubtotal(dec("20.00"), 0))
}

func TestCalculate_ConcreteScenario(t *testing.T) {
	q := Calculate(testSnapshot(t), filledCart(t))

	require.Len(t, q.Products, 1)
	require.Len(t, q.Combos, 1)
	assert.True(t, q.Products[0].Valid())
	assert.Equal(t, "Pork loin", q.Products[0].Name)
	assertDec(t, "12.75", q.Products[0].Subtotal)
	assertDec(t, "60.00", q.Combos[0].Subtotal)
	assertDec(t, "72.75", q.Total)
	assert.Equal(t, "72.75", q.DisplayTotal())
	assert.Empty(t, q.Problems())
}

func TestCalculate_Deterministic(t *testing.T) {
	snap, cart := testSnapshot(t), filledCart(t)

	first := Calculate(snap, cart)
	second := Calculate(snap, cart)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Total.String(), second.Total.String())
}

func TestCalculate_RemovingLineReducesTotalByItsSubtotal(t *testing.T) {
	snap, cart := testSnapshot(t), filledCart(t)
	ref := LineRef{Kind: KindProduct, Index: cart.AddProductLine()}
	require.NoError(t, cart.SetLineField(ref, FieldID, "2"))
	require.NoError(t, cart.SetLineField(ref, FieldQuantity, "1.5"))

	before := Calculate(snap, cart)
	removed := before.Products[ref.Index].Subtotal
	assertDec(t, "11.50", removed)

	require.NoError(t, cart.RemoveLine(ref))
	after := Calculate(snap, cart)

	assertDec(t, before.Total.Sub(removed).String(), after.Total)
}

func TestCalculate_UnresolvedProductContributesNothing(t *testing.T) {
	snap, cart := testSnapshot(t), filledCart(t)
	ref := LineRef{Kind: KindProduct, Index: cart.AddProductLine()}
	require.NoError(t, cart.SetLineField(ref, FieldID, "77"))
	require.NoError(t, cart.SetLineField(ref, FieldQuantity, "3"))

	q := Calculate(snap, cart)

	lq := q.Products[ref.Index]
	assert.False(t, lq.Valid())
	assert.True(t, lq.Subtotal.IsZero())
	assertDec(t, "72.75", q.Total)

	require.Len(t, lq.Problems, 1)
	assert.Equal(t, FieldID, lq.Problems[0].Field)
	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, lq.Problems[0], &unresolved)
	assert.Equal(t, "77", unresolved.ID)
}

func TestCalculate_InactiveRecordsDoNotResolve(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindProduct}, FieldID, "4"))
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindProduct}, FieldQuantity, "1"))
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindCombo}, FieldID, "11"))
	require.NoError(t, cart.SetLineField(LineRef{Kind: KindCombo}, FieldQuantity, "1"))

	q := Calculate(testSnapshot(t), cart)

	assert.False(t, q.Products[0].Valid())
	assert.False(t, q.Combos[0].Valid())
	assert.True(t, q.Total.IsZero())
}

func TestCalculate_MalformedQuantities(t *testing.T) {
	for _, tt := range []struct {
		name   string
		kind   LineKind
		id     string
		qty    string
		reason string
	}{
		{"product blank", KindProduct, "1", "", "is required"},
		{"product text", KindProduct, "1", "two", "is not a number"},
		{"product negative", KindProduct, "1", "-1.5", "must not be negative"},
		{"combo fractional", KindCombo, "9", "1.5", "must be a whole number"},
		{"combo negative", KindCombo, "9", "-2", "must not be negative"},
		{"combo text", KindCombo, "9", "x", "is not a number"},
		{"product huge exponent", KindProduct, "1", "1e2000000000", "is out of range"},
		{"product tiny exponent", KindProduct, "1", "1e-2000000000", "is out of range"},
		{"product above maximum", KindProduct, "1", "100000.5", "is out of range"},
		{"combo huge exponent", KindCombo, "9", "5E999999999", "is out of range"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cart := &Cart{SaleType: DefaultSaleType}
			ref, err := cart.AddLine(tt.kind)
			require.NoError(t, err)
			require.NoError(t, cart.SetLineField(ref, FieldID, tt.id))
			require.NoError(t, cart.SetLineField(ref, FieldQuantity, tt.qty))

			problems := Calculate(testSnapshot(t), cart).Problems()

			require.Len(t, problems, 1)
			assert.Equal(t, ref, problems[0].Ref)
			assert.Equal(t, FieldQuantity, problems[0].Field)
			var malformed *MalformedQuantityError
			require.ErrorAs(t, problems[0], &malformed)
			assert.Equal(t, tt.reason, malformed.Reason)
		})
	}
}

func TestCalculate_BlankLineReportsBothFields(t *testing.T) {
	q := Calculate(testSnapshot(t), NewCart())

	problems := q.Problems()
	require.Len(t, problems, 4)
	assert.Equal(t, "product[0].id: no product selected", problems[0].Error())
	assert.Equal(t, FieldQuantity, problems[1].Field)
	assert.Equal(t, KindCombo, problems[2].Ref.Kind)
	assert.True(t, q.Total.IsZero())
}

func TestCalculate_AcceptsPaddedInput(t *testing.T) {
	cart := &Cart{SaleType: DefaultSaleType}
	ref, err := cart.AddLine(KindProduct)
	require.NoError(t, err)
	require.NoError(t, cart.SetLineField(ref, FieldID, " 1 "))
	require.NoError(t, cart.SetLineField(ref, FieldQuantity, " 0.5"))

	q := Calculate(testSnapshot(t), cart)

	assertDec(t, "2.75", q.Total)
}

func TestCalculate_RoundsOnlyForDisplay(t *testing.T) {
	snap, err := catalog.NewSnapshot([]catalog.Product{
		{ID: 1, Name: "Odd cut", PricePerWholeUnit: dec("1.005"), PricePerHalfUnit: dec("0.333"), Active: true},
	}, nil)
	require.NoError(t, err)
	cart := &Cart{SaleType: DefaultSaleType}
	ref, _ := cart.AddLine(KindProduct)
	require.NoError(t, cart.SetLineField(ref, FieldID, "1"))
	require.NoError(t, cart.SetLineField(ref, FieldQuantity, "2.5"))

	q := Calculate(snap, cart)

	assertDec(t, "2.343", q.Total)
	assert.Equal(t, "2.34", q.DisplayTotal())
	assert.Equal(t, "2.34", q.Products[0].Display())
}
