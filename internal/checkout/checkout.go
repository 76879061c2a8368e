// Package checkout turns a cart into a hosted payment session and finalizes
// the purchase once the provider reports it paid.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eshop/internal/cart"
	"eshop/internal/domain"
)

// Line is one (price reference, quantity) pair sent to the payment provider.
type Line struct {
	PriceRef string
	Quantity int
}

// Request is the provider-facing snapshot of a cart. It is never persisted as-is.
type Request struct {
	Lines         []Line
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// Session is the provider's answer: an id to verify later and the page to send the visitor to.
type Session struct {
	ID  string
	URL string
}

type Gateway interface {
	CreateSession(ctx context.Context, req Request) (Session, error)
	// Paid reports whether the provider considers the session paid.
	Paid(ctx context.Context, sessionID string) (bool, error)
}

// Record is what the store remembers about a started checkout.
type Record struct {
	ID        string
	SessionID string
	Subtotal  int64
	Lines     []RecordLine
}

type RecordLine struct {
	Key       string
	PriceRef  string
	Qty       int
	UnitPrice int64
}

// Status is where a recorded checkout stands.
type Status struct {
	Paid        bool
	CartCleared bool
}

type Ledger interface {
	Record(ctx context.Context, r Record) error
	// Status returns domain.ErrNotFound unless checkout id belongs to sid.
	Status(ctx context.Context, id, sid string) (Status, error)
	// MarkPaid flips a pending checkout owned by sid to paid and takes its
	// quantities out of stock. It reports false when the checkout was already
	// paid, and domain.ErrNotFound when no such checkout belongs to sid.
	MarkPaid(ctx context.Context, id, sid string) (bool, error)
	MarkCartCleared(ctx context.Context, id string) error
}

type Carts interface {
	Clear(ctx context.Context, sid string) error
}

type Orchestrator struct {
	Catalog cart.Lookup
	Gateway Gateway
	Ledger  Ledger
	Carts   Carts

	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// BuildRequest maps cart lines 1:1, in order, to provider lines. Lines whose
// product is gone are left out; if nothing remains the cart counts as empty.
func (o *Orchestrator) BuildRequest(ctx context.Context, c *cart.Cart) (Request, Record, error) {
	if c.Empty() {
		return Request{}, Record{}, domain.ErrEmptyCart
	}
	priced, err := c.Resolve(ctx, o.Catalog)
	if err != nil {
		return Request{}, Record{}, fmt.Errorf("resolve cart: %w", err)
	}
	if len(priced) == 0 {
		return Request{}, Record{}, domain.ErrEmptyCart
	}

	req := Request{SuccessURL: o.SuccessURL, CancelURL: o.CancelURL, Lines: make([]Line, 0, len(priced))}
	rec := Record{Subtotal: cart.Sum(priced), Lines: make([]RecordLine, 0, len(priced))}
	for _, p := range priced {
		req.Lines = append(req.Lines, Line{PriceRef: p.Product.PriceRef, Quantity: p.Qty})
		rec.Lines = append(rec.Lines, RecordLine{
			Key:       p.Key,
			PriceRef:  p.Product.PriceRef,
			Qty:       p.Qty,
			UnitPrice: p.Product.UnitPrice(),
		})
	}
	return req, rec, nil
}

// CreateSession asks the gateway for a hosted payment page and returns its
// URL. The cart is left untouched.
func (o *Orchestrator) CreateSession(ctx context.Context, sid string, c *cart.Cart, email string) (string, error) {
	req, rec, err := o.BuildRequest(ctx, c)
	if err != nil {
		return "", err
	}
	req.CustomerEmail = email

	gctx, cancel := o.withTimeout(ctx)
	defer cancel()
	sess, err := o.Gateway.CreateSession(gctx, req)
	if err != nil {
		return "", unavailable(err)
	}
	if sess.URL == "" || sess.ID == "" {
		return "", &domain.GatewayUnavailableError{Err: errors.New("provider returned no redirect url")}
	}

	rec.ID = sess.ID
	rec.SessionID = sid
	if err := o.Ledger.Record(ctx, rec); err != nil {
		return "", fmt.Errorf("record checkout: %w", err)
	}
	return sess.URL, nil
}

// ConfirmSuccess verifies with the gateway that the checkout was paid, then
// takes the purchased quantities out of stock and clears the visitor's cart.
// Only the session that started the checkout may confirm it, and the gateway
// is not consulted for checkouts this store never recorded. Confirming the
// same checkout twice is a no-op.
func (o *Orchestrator) ConfirmSuccess(ctx context.Context, sid, checkoutID string) error {
	if checkoutID == "" {
		return domain.Invalid("session_id", "is required")
	}

	st, err := o.Ledger.Status(ctx, checkoutID, sid)
	if err != nil {
		return err
	}
	if st.CartCleared {
		return nil
	}

	if !st.Paid {
		gctx, cancel := o.withTimeout(ctx)
		defer cancel()
		paid, err := o.Gateway.Paid(gctx, checkoutID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return unavailable(err)
		}
		if !paid {
			return domain.ErrNotPaid
		}
		if _, err := o.Ledger.MarkPaid(ctx, checkoutID, sid); err != nil {
			return err
		}
	}

	// A failed clear leaves the checkout paid but uncleared, so the next
	// visit to the success page retries it.
	if err := o.Carts.Clear(ctx, sid); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return o.Ledger.MarkCartCleared(ctx, checkoutID)
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

func unavailable(err error) error {
	if domain.IsGatewayUnavailable(err) {
		return err
	}
	return &domain.GatewayUnavailableError{Err: err}
}
