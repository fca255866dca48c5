package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCartTotalsExample(t *testing.T) {
	items := []CartItem{
		{Product: &Product{ID: "p1", Price: 100, DiscountPercentage: 10}, Quantity: 2},
		{Product: &Product{ID: "p2", Price: 50}, Quantity: 1},
	}
	assert.InDelta(t, 100*0.9*2+50, CartTotal(items), 1e-9)
	assert.Equal(t, 3, CartItemCount(items))
}

func TestCartTotalEmptyAndNilProduct(t *testing.T) {
	assert.Zero(t, CartTotal(nil))
	assert.Zero(t, CartItemCount(nil))

	// A line missing its populated product contributes nothing instead of
	// panicking.
	items := []CartItem{{Product: nil, Quantity: 3}}
	assert.Zero(t, CartTotal(items))
	assert.Equal(t, 3, CartItemCount(items))
}

func TestProperty_CartTotalsMatchDefinition(t *testing.T) {
	properties := gopter.NewProperties(nil)

	lineGen := gopter.CombineGens(
		gen.Float64Range(0.01, 10000),
		gen.Float64Range(0, 100),
		gen.IntRange(1, 50),
	).Map(func(values []interface{}) CartItem {
		return CartItem{
			Product: &Product{
				Price:              values[0].(float64),
				DiscountPercentage: values[1].(float64),
			},
			Quantity: values[2].(int),
		}
	})

	properties.Property("total and count equal their per-item sums", prop.ForAll(
		func(items []CartItem) bool {
			var wantTotal float64
			var wantCount int
			for _, item := range items {
				wantTotal += item.Product.Price * (1 - item.Product.DiscountPercentage/100) * float64(item.Quantity)
				wantCount += item.Quantity
			}
			gotTotal := CartTotal(items)
			diff := gotTotal - wantTotal
			if diff < 0 {
				diff = -diff
			}
			return diff < 1e-6 && CartItemCount(items) == wantCount
		},
		gen.SliceOf(lineGen),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
