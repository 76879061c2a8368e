package services

import (
	"context"

	"eshop/internal/cart"
)

// CartStore persists one cart per session id. Load reports whether a cart
// was stored at all.
type CartStore interface {
	Load(ctx context.Context, sid string) (*cart.Cart, bool, error)
	Save(ctx context.Context, sid string, c *cart.Cart) error
	Delete(ctx context.Context, sid string) error
}

type CartService struct {
	Store   CartStore
	Catalog cart.Lookup
	locks   keyedMutex
}

func NewCartService(store CartStore, catalog cart.Lookup) *CartService {
	return &CartService{Store: store, Catalog: catalog}
}

type CartView struct {
	Lines    []cart.Priced
	Subtotal int64
	Count    int
}

// Init stores an empty cart for sid unless one already exists.
func (s *CartService) Init(ctx context.Context, sid string) error {
	unlock := s.locks.Lock(sid)
	defer unlock()
	_, found, err := s.Store.Load(ctx, sid)
	if err != nil || found {
		return err
	}
	return s.Store.Save(ctx, sid, cart.New())
}

// Load returns the visitor's cart, or an empty one when none is stored.
func (s *CartService) Load(ctx context.Context, sid string) (*cart.Cart, error) {
	c, found, err := s.Store.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !found {
		return cart.New(), nil
	}
	return c, nil
}

// Set replaces the quantity for a product that must exist in the catalog.
func (s *CartService) Set(ctx context.Context, sid, key string, qty int) error {
	if _, err := s.Catalog.ProductByKey(ctx, key); err != nil {
		return err
	}
	return s.mutate(ctx, sid, func(c *cart.Cart) error { return c.Set(key, qty) })
}

func (s *CartService) Increment(ctx context.Context, sid, key string) error {
	if _, err := s.Catalog.ProductByKey(ctx, key); err != nil {
		return err
	}
	return s.mutate(ctx, sid, func(c *cart.Cart) error { return c.Increment(key) })
}

// SetAll applies the cart page's bulk update. Keys not already in the cart
// are ignored so a stale form cannot add products.
func (s *CartService) SetAll(ctx context.Context, sid string, updates []cart.Line) error {
	return s.mutate(ctx, sid, func(c *cart.Cart) error {
		known := updates[:0:0]
		for _, u := range updates {
			if c.Qty(u.Key) > 0 {
				known = append(known, u)
			}
		}
		return c.SetAll(known)
	})
}

// Clear drops the visitor's cart. Clearing a missing cart is not an error.
func (s *CartService) Clear(ctx context.Context, sid string) error {
	unlock := s.locks.Lock(sid)
	defer unlock()
	return s.Store.Delete(ctx, sid)
}

func (s *CartService) View(ctx context.Context, sid string) (CartView, error) {
	c, err := s.Load(ctx, sid)
	if err != nil {
		return CartView{}, err
	}
	lines, err := c.Resolve(ctx, s.Catalog)
	if err != nil {
		return CartView{}, err
	}
	v := CartView{Lines: lines, Subtotal: cart.Sum(lines)}
	for _, l := range lines {
		v.Count += l.Qty
	}
	return v, nil
}

// mutate loads, changes and saves the cart under the session lock. A failed
// change leaves the stored cart untouched.
func (s *CartService) mutate(ctx context.Context, sid string, fn func(*cart.Cart) error) error {
	unlock := s.locks.Lock(sid)
	defer unlock()

	c, err := s.Load(ctx, sid)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.Store.Save(ctx, sid, c)
}
