package bundle

import (
	"testing"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sel(productID, price string, qty int) Selection {
	return Selection{
		ProductID: productID,
		Variant:   domain.Variant{ID: "v-" + productID, Price: decimal.RequireFromString(price)},
		Quantity:  qty,
	}
}

func TestCalculate_Empty(t *testing.T) {
	c := NewCalculator(DefaultMarkup)
	assert.Nil(t, c.Calculate(nil))
	assert.Nil(t, c.Calculate([]Selection{}))
}

func TestCalculate_HoodieAndCap(t *testing.T) {
	c := NewCalculator(DefaultMarkup)

	got := c.Calculate([]Selection{sel("2", "39.99", 1), sel("3", "19.99", 1)})
	require.NotNil(t, got)

	assert.Equal(t, "59.98", got.TotalPrice.String())
	assert.Equal(t, "71.976", got.IndividualPrice.String())
	assert.Equal(t, "11.996", got.Savings.String())
	pct, _ := got.SavingsPercentage.Float64()
	assert.InDelta(t, 16.67, pct, 0.01)
	assert.Len(t, got.Items, 2)
}

func TestCalculate_QuantityMultiplies(t *testing.T) {
	c := NewCalculator(DefaultMarkup)

	got := c.Calculate([]Selection{sel("4", "9.99", 3)})
	require.NotNil(t, got)
	assert.Equal(t, "29.97", got.TotalPrice.String())
	assert.Equal(t, "35.964", got.IndividualPrice.String())
}

func TestCalculate_ZeroPricesHaveZeroPercentage(t *testing.T) {
	c := NewCalculator(DefaultMarkup)

	got := c.Calculate([]Selection{sel("9", "0", 1)})
	require.NotNil(t, got)
	assert.True(t, got.SavingsPercentage.IsZero())
}

func TestNewCalculator_InjectedMarkup(t *testing.T) {
	c := NewCalculator(decimal.RequireFromString("1.5"))

	got := c.Calculate([]Selection{sel("1", "10", 1)})
	require.NotNil(t, got)
	assert.Equal(t, "15", got.IndividualPrice.String())
	assert.Equal(t, "5", got.Savings.String())
}

func TestNewCalculator_NonPositiveMarkupFallsBack(t *testing.T) {
	c := NewCalculator(decimal.Zero)
	assert.True(t, c.Markup().Equal(DefaultMarkup))
}

func TestAddItem_MergesByProductID(t *testing.T) {
	items := AddItem(nil, sel("1", "24.99", 1))
	red := sel("1", "26.99", 2)
	red.Variant.ID = "v-red"

	items2 := AddItem(items, red)

	require.Len(t, items2, 1)
	assert.Equal(t, 3, items2[0].Quantity)
	assert.Equal(t, "v-red", items2[0].Variant.ID)
	// input untouched
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddItem_AppendsNewProduct(t *testing.T) {
	items := AddItem(nil, sel("1", "24.99", 0))
	items = AddItem(items, sel("3", "19.99", 1))

	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "3", items[1].ProductID)
}

func TestRemoveItem(t *testing.T) {
	items := []Selection{sel("1", "1", 1), sel("2", "2", 1)}
	out := RemoveItem(items, "1")

	require.Len(t, out, 1)
	assert.Equal(t, "2", out[0].ProductID)
	assert.Len(t, items, 2)
}

func TestUpdateItemQuantity(t *testing.T) {
	items := []Selection{sel("1", "1", 1), sel("2", "2", 1)}

	out := UpdateItemQuantity(items, "2", 5)
	assert.Equal(t, 5, out[1].Quantity)
	assert.Equal(t, 1, items[1].Quantity)

	assert.Len(t, UpdateItemQuantity(items, "2", 0), 1)
	assert.Len(t, UpdateItemQuantity(items, "2", -1), 1)
}

func TestClearAndItemCount(t *testing.T) {
	items := []Selection{sel("1", "1", 2), sel("2", "2", 3)}
	assert.Equal(t, 5, ItemCount(items))
	assert.Empty(t, Clear(items))
	assert.Equal(t, 0, ItemCount(nil))
}
