package client

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Order sides and types accepted by the exchange.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"

	TimeInForceGTC = "GOOD_TIL_CANCEL"
	TimeInForceIOC = "IMMEDIATE_OR_CANCEL"
	TimeInForceFOK = "FILL_OR_KILL"
)

// OrderBuilder provides a fluent interface for constructing order requests.
// It accumulates validation errors and reports them on Build.
//
// Example:
//
//	params, err := client.NewOrderBuilder("10000001").
//	    Buy().
//	    Limit().
//	    Price("65000").
//	    Size("0.001").
//	    Build()
type OrderBuilder struct {
	params CreateOrderParams
	price  *apd.Decimal
	size   *apd.Decimal
	err    error
}

// NewOrderBuilder creates a builder for the given contract.
func NewOrderBuilder(contractID string) *OrderBuilder {
	return &OrderBuilder{
		params: CreateOrderParams{ContractID: contractID},
	}
}

// Buy sets the order side to buy.
func (b *OrderBuilder) Buy() *OrderBuilder {
	b.params.Side = SideBuy
	return b
}

// Sell sets the order side to sell.
func (b *OrderBuilder) Sell() *OrderBuilder {
	b.params.Side = SideSell
	return b
}

// Market sets the order type to market.
func (b *OrderBuilder) Market() *OrderBuilder {
	b.params.Type = TypeMarket
	return b
}

// Limit sets the order type to limit.
func (b *OrderBuilder) Limit() *OrderBuilder {
	b.params.Type = TypeLimit
	return b
}

// Price sets the limit price from its decimal string form.
func (b *OrderBuilder) Price(price string) *OrderBuilder {
	if b.err != nil {
		return b
	}
	d, _, err := apd.NewFromString(price)
	if err != nil {
		b.err = fmt.Errorf("parse price: %w", err)
		return b
	}
	b.price = d
	b.params.Price = price
	return b
}

// Size sets the order size from its decimal string form.
func (b *OrderBuilder) Size(size string) *OrderBuilder {
	if b.err != nil {
		return b
	}
	d, _, err := apd.NewFromString(size)
	if err != nil {
		b.err = fmt.Errorf("parse size: %w", err)
		return b
	}
	b.size = d
	b.params.Size = size
	return b
}

// GTC sets the time-in-force to good-til-cancel.
func (b *OrderBuilder) GTC() *OrderBuilder {
	b.params.TimeInForce = TimeInForceGTC
	return b
}

// IOC sets the time-in-force to immediate-or-cancel.
func (b *OrderBuilder) IOC() *OrderBuilder {
	b.params.TimeInForce = TimeInForceIOC
	return b
}

// FOK sets the time-in-force to fill-or-kill.
func (b *OrderBuilder) FOK() *OrderBuilder {
	b.params.TimeInForce = TimeInForceFOK
	return b
}

// ClientOrderID sets a client-assigned identifier for order tracking.
func (b *OrderBuilder) ClientOrderID(id string) *OrderBuilder {
	b.params.ClientOrderID = id
	return b
}

// Build validates and returns the order parameters.
func (b *OrderBuilder) Build() (CreateOrderParams, error) {
	if b.err != nil {
		return CreateOrderParams{}, b.err
	}

	if b.params.ContractID == "" {
		return CreateOrderParams{}, fmt.Errorf("contract id is required")
	}
	if b.params.Side != SideBuy && b.params.Side != SideSell {
		return CreateOrderParams{}, fmt.Errorf("order side is required")
	}
	if b.params.Type == "" {
		return CreateOrderParams{}, fmt.Errorf("order type is required")
	}
	if b.size == nil || b.size.IsZero() || b.size.Negative {
		return CreateOrderParams{}, fmt.Errorf("size must be positive")
	}
	if b.params.Type == TypeLimit {
		if b.price == nil || b.price.IsZero() || b.price.Negative {
			return CreateOrderParams{}, fmt.Errorf("price must be positive for limit orders")
		}
	}

	return b.params, nil
}
