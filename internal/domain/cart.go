package domain

// CartItem links a live product to a quantity. Pricing is read from the
// referenced product at computation time, never frozen at add time.
type CartItem struct {
	Product  *Product `json:"productId"`
	Quantity int      `json:"quantity"`
}

// LineTotal returns the discounted price for this line.
func (i CartItem) LineTotal() float64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.DiscountedPrice() * float64(i.Quantity)
}

// CartTotal sums the discounted line totals of the given items. Always
// recomputed from the current item list, never cached.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// CartItemCount sums the quantities of the given items.
func CartItemCount(items []CartItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
