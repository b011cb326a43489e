package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func TestEffectiveProductPriceUsesSalePriceWhenOnSale(t *testing.T) {
	if got := effectiveProductPrice(100, true, 75); got != 75 {
		t.Fatalf("expected sale price 75, got %v", got)
	}
	if got := effectiveProductPrice(100, false, 75); got != 100 {
		t.Fatalf("expected regular price 100 when sale disabled, got %v", got)
	}
	if got := effectiveProductPrice(100, true, 120); got != 100 {
		t.Fatalf("expected regular price when sale price is not lower, got %v", got)
	}
}

func TestShippingFor(t *testing.T) {
	tests := []struct {
		subtotal  float64
		threshold float64
		want      float64
	}{
		{subtotal: 499, threshold: 999, want: 49},
		{subtotal: 999, threshold: 999, want: 0},
		{subtotal: 1500, threshold: 999, want: 0},
		{subtotal: 1500, threshold: 0, want: 49},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shippingFor(tt.subtotal, 49, tt.threshold), "subtotal %v threshold %v", tt.subtotal, tt.threshold)
	}
}

func TestPriceLines(t *testing.T) {
	products := map[string]models.Product{
		"tea":    {Name: "Tea", Price: 499, Stock: 10, ImagePath: "/img/tea.jpg"},
		"coffee": {Name: "Coffee", Price: 800, SaleEnabled: true, SalePrice: 650, Stock: 1},
	}

	quote, err := priceLines([]models.CartItem{{ProductID: "tea", Quantity: 1}}, products, 49, 999)
	require.NoError(t, err)
	assert.Equal(t, 499.0, quote.Subtotal)
	assert.Equal(t, 49.0, quote.ShippingCharge)
	assert.Equal(t, 548.0, quote.TotalAmount)
	assert.Equal(t, "/img/tea.jpg", quote.Items[0].Image)

	quote, err = priceLines([]models.CartItem{
		{ProductID: "tea", Quantity: 1},
		{ProductID: "coffee", Quantity: 1},
		{ProductID: "tea", Quantity: 1},
	}, products, 49, 999)
	require.NoError(t, err)
	require.Len(t, quote.Items, 2)
	assert.Equal(t, 2, quote.Items[0].Quantity)
	assert.Equal(t, 650.0, quote.Items[1].Price)
	assert.Equal(t, 1648.0, quote.Subtotal)
	assert.Equal(t, 0.0, quote.ShippingCharge)
	assert.Equal(t, 1648.0, quote.TotalAmount)
}

func TestPriceLinesRejectsBadLines(t *testing.T) {
	products := map[string]models.Product{
		"coffee": {Name: "Coffee", Price: 800, Stock: 1},
	}

	_, err := priceLines([]models.CartItem{{ProductID: "ghost", Quantity: 1}}, products, 49, 999)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	var notFound productNotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = priceLines([]models.CartItem{{ProductID: "coffee", Quantity: 2}}, products, 49, 999)
	var stockErr outOfStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	_, err = priceLines([]models.CartItem{{ProductID: "coffee", Quantity: 0}}, products, 49, 999)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
