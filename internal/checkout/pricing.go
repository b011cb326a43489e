package checkout

import (
	"fmt"
	"math"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type productNotFoundError struct {
	ProductID string
}

func (e productNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e productNotFoundError) Is(target error) bool {
	return target == apperr.ErrValidation
}

type outOfStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e outOfStockError) Is(target error) bool {
	return target == apperr.ErrValidation
}

// Quote is the priced snapshot a gateway order is issued for.
type Quote struct {
	Items          []models.OrderItem `json:"items"`
	Subtotal       float64            `json:"subtotal"`
	ShippingCharge float64            `json:"shippingCharge"`
	TotalAmount    float64            `json:"totalAmount"`
}

func isProductOnSale(price float64, saleEnabled bool, salePrice float64) bool {
	return saleEnabled && salePrice > 0 && salePrice < price
}

func effectiveProductPrice(price float64, saleEnabled bool, salePrice float64) float64 {
	if isProductOnSale(price, saleEnabled, salePrice) {
		return salePrice
	}
	return price
}

// shippingFor charges the flat rate below the free-shipping threshold. A
// non-positive threshold means shipping is never free.
func shippingFor(subtotal, flat, threshold float64) float64 {
	if threshold > 0 && subtotal >= threshold {
		return 0
	}
	return flat
}

func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// priceLines resolves every line against the catalog. Lines for the same
// product are merged.
func priceLines(lines []models.CartItem, products map[string]models.Product, flatShipping, freeThreshold float64) (Quote, error) {
	merged := make([]models.CartItem, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, apperr.Validation("quantity", "must be greater than 0")
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	quote := Quote{Items: make([]models.OrderItem, 0, len(merged))}
	for _, line := range merged {
		product, ok := products[line.ProductID]
		if !ok {
			return Quote{}, productNotFoundError{ProductID: line.ProductID}
		}
		if product.Stock < line.Quantity {
			return Quote{}, outOfStockError{
				ProductID: line.ProductID,
				Available: product.Stock,
				Requested: line.Quantity,
			}
		}

		unitPrice := effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
		quote.Items = append(quote.Items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Price:     unitPrice,
			Quantity:  line.Quantity,
			Image:     product.ImagePath,
		})
		quote.Subtotal += unitPrice * float64(line.Quantity)
	}

	quote.Subtotal = roundMoney(quote.Subtotal)
	quote.ShippingCharge = shippingFor(quote.Subtotal, flatShipping, freeThreshold)
	quote.TotalAmount = roundMoney(quote.Subtotal + quote.ShippingCharge)
	return quote, nil
}
