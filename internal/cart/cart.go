// Package cart holds a visitor's in-progress order.
//
// A Cart is a plain value owned by one session. It never reads or writes
// session storage itself: the caller loads it, mutates it and saves it back.
// Item count and subtotal are always recomputed from the lines.
package cart

import (
	"context"
	"errors"

	"eshop/internal/domain"
)

// MaxQty bounds a single line so a form post cannot request absurd amounts.
const MaxQty = 50

type Line struct {
	Key string `json:"key" db:"url_key"`
	Qty int    `json:"qty" db:"qty"`
}

type Cart struct {
	Lines []Line `json:"lines"`
}

// Lookup resolves a product by url key. It returns domain.ErrNotFound on a miss.
type Lookup interface {
	ProductByKey(ctx context.Context, key string) (domain.Product, error)
}

// New returns an empty cart.
func New() *Cart { return &Cart{Lines: []Line{}} }

// Set replaces the quantity of the line for key, appending a new line when
// absent. The quantity is never summed with the previous one.
func (c *Cart) Set(key string, qty int) error {
	if err := checkLine(key, qty); err != nil {
		return err
	}
	if i := c.index(key); i >= 0 {
		c.Lines[i].Qty = qty
		return nil
	}
	c.Lines = append(c.Lines, Line{Key: key, Qty: qty})
	return nil
}

// Increment adds one to the line for key, creating it with quantity 1.
func (c *Cart) Increment(key string) error {
	qty := 1
	if i := c.index(key); i >= 0 {
		qty = c.Lines[i].Qty + 1
	}
	return c.Set(key, qty)
}

// SetAll applies several quantity updates atomically: every update is checked
// before the first one is applied.
func (c *Cart) SetAll(updates []Line) error {
	for _, u := range updates {
		if err := checkLine(u.Key, u.Qty); err != nil {
			return err
		}
	}
	for _, u := range updates {
		_ = c.Set(u.Key, u.Qty)
	}
	return nil
}

// Clear empties the cart. Safe on a nil or already empty cart.
func (c *Cart) Clear() {
	if c == nil {
		return
	}
	c.Lines = []Line{}
}

func (c *Cart) Empty() bool { return c == nil || len(c.Lines) == 0 }

// Count is the total number of units across all lines.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

// Qty returns the quantity held for key, 0 when absent.
func (c *Cart) Qty(key string) int {
	if c == nil {
		return 0
	}
	if i := c.index(key); i >= 0 {
		return c.Lines[i].Qty
	}
	return 0
}

// Priced is a cart line resolved against the catalog.
type Priced struct {
	Line
	Product domain.Product
	Total   int64
}

// Resolve prices every line in cart order. Lines whose product no longer
// exists are skipped.
func (c *Cart) Resolve(ctx context.Context, lookup Lookup) ([]Priced, error) {
	if c == nil {
		return nil, nil
	}
	out := make([]Priced, 0, len(c.Lines))
	for _, l := range c.Lines {
		p, err := lookup.ProductByKey(ctx, l.Key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Priced{Line: l, Product: p, Total: p.UnitPrice() * int64(l.Qty)})
	}
	return out, nil
}

// Subtotal sums unit price times quantity over all resolvable lines.
func (c *Cart) Subtotal(ctx context.Context, lookup Lookup) (int64, error) {
	lines, err := c.Resolve(ctx, lookup)
	if err != nil {
		return 0, err
	}
	return Sum(lines), nil
}

func Sum(lines []Priced) int64 {
	var total int64
	for _, l := range lines {
		total += l.Total
	}
	return total
}

func (c *Cart) index(key string) int {
	for i, l := range c.Lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}

func checkLine(key string, qty int) error {
	if key == "" {
		return domain.Invalid("product", "is required")
	}
	if qty < 1 {
		return domain.Invalid("quantity", "must be at least 1")
	}
	if qty > MaxQty {
		return domain.Invalid("quantity", "must be at most 50")
	}
	return nil
}
