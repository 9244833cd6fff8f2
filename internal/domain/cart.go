package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor converts item prices (minor currency units) into order totals.
const MinorUnitsPerMajor = 100

// MaxTotalMinor is the largest cart total the order stores can hold (NUMERIC(12,2)).
const MaxTotalMinor int64 = 999_999_999_999

var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrInvalidCartItem = errors.New("invalid cart item")
)

// CartItem is a line item as submitted by the client. Price is in minor units.
type CartItem struct {
	Name   string `json:"name" bson:"name"`
	Price  int64  `json:"price" bson:"price"`
	Amount int64  `json:"amount" bson:"amount"`
}

type Cart []CartItem

func (i CartItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCartItem)
	}
	if i.Price <= 0 {
		return fmt.Errorf("%w: price of %q must be positive", ErrInvalidCartItem, i.Name)
	}
	if i.Amount <= 0 {
		return fmt.Errorf("%w: amount of %q must be positive", ErrInvalidCartItem, i.Name)
	}
	return nil
}

func (c Cart) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCart
	}
	for _, item := range c {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if minor := c.minorTotal(); minor.GreaterThan(decimal.NewFromInt(MaxTotalMinor)) {
		return fmt.Errorf("%w: cart total of %s minor units exceeds %d", ErrInvalidCartItem, minor, MaxTotalMinor)
	}
	return nil
}

// Total returns sum(price*amount) converted to major units.
func (c Cart) Total() decimal.Decimal {
	return c.minorTotal().Div(decimal.NewFromInt(MinorUnitsPerMajor))
}

func (c Cart) minorTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c {
		sum = sum.Add(decimal.NewFromInt(item.Price).Mul(decimal.NewFromInt(item.Amount)))
	}
	return sum
}
