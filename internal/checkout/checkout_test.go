package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshop/internal/cart"
	"eshop/internal/domain"
)

type fakeCatalog map[string]domain.Product

func (f fakeCatalog) ProductByKey(_ context.Context, key string) (domain.Product, error) {
	p, ok := f[key]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeGateway struct {
	calls   int
	got     Request
	session Session
	err     error
	paid      bool
	paidErr   error
	paidCalls int
	block     bool
}

func (g *fakeGateway) CreateSession(ctx context.Context, req Request) (Session, error) {
	g.calls++
	g.got = req
	if g.block {
		<-ctx.Done()
		return Session{}, ctx.Err()
	}
	return g.session, g.err
}

func (g *fakeGateway) Paid(context.Context, string) (bool, error) {
	g.paidCalls++
	return g.paid, g.paidErr
}

type fakeLedger struct {
	records map[string]Record
	paid    map[string]bool
	cleared map[string]bool
}

func newLedger() *fakeLedger {
	return &fakeLedger{records: map[string]Record{}, paid: map[string]bool{}, cleared: map[string]bool{}}
}

func (l *fakeLedger) Status(_ context.Context, id, sid string) (Status, error) {
	r, ok := l.records[id]
	if !ok || r.SessionID != sid {
		return Status{}, domain.ErrNotFound
	}
	return Status{Paid: l.paid[id], CartCleared: l.cleared[id]}, nil
}

func (l *fakeLedger) MarkCartCleared(_ context.Context, id string) error {
	if l.paid[id] {
		l.cleared[id] = true
	}
	return nil
}

func (l *fakeLedger) Record(_ context.Context, r Record) error {
	l.records[r.ID] = r
	return nil
}

func (l *fakeLedger) MarkPaid(_ context.Context, id, sid string) (bool, error) {
	r, ok := l.records[id]
	if !ok || r.SessionID != sid {
		return false, domain.ErrNotFound
	}
	if l.paid[id] {
		return false, nil
	}
	l.paid[id] = true
	return true, nil
}

type fakeCarts struct {
	cleared []string
	err     error
}

func (f *fakeCarts) Clear(_ context.Context, sid string) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, sid)
	return nil
}

func salePrice(v int64) *int64 { return &v }

func newOrchestrator(gw *fakeGateway) (*Orchestrator, *fakeLedger, *fakeCarts) {
	ledger := newLedger()
	carts := &fakeCarts{}
	return &Orchestrator{
		Catalog: fakeCatalog{
			"a": {Key: "a", Price: 1000, SalePrice: salePrice(900), PriceRef: "price_abc"},
			"b": {Key: "b", Price: 500, PriceRef: "price_b"},
		},
		Gateway:    gw,
		Ledger:     ledger,
		Carts:      carts,
		SuccessURL: "http://shop/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "http://shop/cart",
		Timeout:    time.Second,
	}, ledger, carts
}

func TestCreateSession_EmptyCartSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	o, _, _ := newOrchestrator(gw)

	_, err := o.CreateSession(context.Background(), "sid", cart.New(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Zero(t, gw.calls)

	_, err = o.CreateSession(context.Background(), "sid", nil, "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCreateSession_MapsLinesInOrder(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	o, ledger, _ := newOrchestrator(gw)

	c := cart.New()
	require.NoError(t, c.Set("a", 2))
	url, err := o.CreateSession(context.Background(), "sid", c, "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/cs_1", url)
	assert.Equal(t, []Line{{PriceRef: "price_abc", Quantity: 2}}, gw.got.Lines)
	assert.Equal(t, "ada@example.com", gw.got.CustomerEmail)
	assert.Equal(t, o.CancelURL, gw.got.CancelURL)
	assert.Equal(t, 2, c.Qty("a"), "cart must not change")

	rec := ledger.records["cs_1"]
	assert.Equal(t, "sid", rec.SessionID)
	assert.Equal(t, int64(1800), rec.Subtotal)
}

func TestCreateSession_SkipsMissingProducts(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_2", URL: "https://pay.example/cs_2"}}
	o, _, _ := newOrchestrator(gw)

	c := cart.New()
	require.NoError(t, c.Set("b", 1))
	require.NoError(t, c.Set("deleted", 4))
	require.NoError(t, c.Set("a", 3))
	_, err := o.CreateSession(context.Background(), "sid", c, "")
	require.NoError(t, err)

	assert.Equal(t, []Line{{PriceRef: "price_b", Quantity: 1}, {PriceRef: "price_abc", Quantity: 3}}, gw.got.Lines)
}

func TestCreateSession_OnlyMissingProductsIsEmpty(t *testing.T) {
	gw := &fakeGateway{}
	o, _, _ := newOrchestrator(gw)

	c := cart.New()
	require.NoError(t, c.Set("deleted", 1))
	_, err := o.CreateSession(context.Background(), "sid", c, "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Zero(t, gw.calls)
}

func TestCreateSession_GatewayFailures(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Set("a", 1))

	t.Run("error", func(t *testing.T) {
		o, ledger, _ := newOrchestrator(&fakeGateway{err: errors.New("connection refused")})
		_, err := o.CreateSession(context.Background(), "sid", c, "")
		assert.True(t, domain.IsGatewayUnavailable(err))
		assert.Empty(t, ledger.records)
	})

	t.Run("no url", func(t *testing.T) {
		o, _, _ := newOrchestrator(&fakeGateway{session: Session{ID: "cs_3"}})
		_, err := o.CreateSession(context.Background(), "sid", c, "")
		assert.True(t, domain.IsGatewayUnavailable(err))
	})

	t.Run("timeout", func(t *testing.T) {
		o, _, _ := newOrchestrator(&fakeGateway{block: true})
		o.Timeout = 10 * time.Millisecond
		_, err := o.CreateSession(context.Background(), "sid", c, "")
		assert.True(t, domain.IsGatewayUnavailable(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestConfirmSuccess(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_9", URL: "https://pay.example/cs_9"}, paid: true}
	o, _, carts := newOrchestrator(gw)

	c := cart.New()
	require.NoError(t, c.Set("a", 1))
	_, err := o.CreateSession(context.Background(), "sid", c, "")
	require.NoError(t, err)

	require.NoError(t, o.ConfirmSuccess(context.Background(), "sid", "cs_9"))
	assert.Equal(t, []string{"sid"}, carts.cleared)

	// a reload of the success page does not clear a newer cart
	require.NoError(t, o.ConfirmSuccess(context.Background(), "sid", "cs_9"))
	assert.Len(t, carts.cleared, 1)
	assert.Equal(t, 1, gw.paidCalls)
}

func TestConfirmSuccess_RetriesFailedCartClear(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_7", URL: "u"}, paid: true}
	o, ledger, carts := newOrchestrator(gw)
	c := cart.New()
	require.NoError(t, c.Set("a", 1))
	_, err := o.CreateSession(context.Background(), "sid", c, "")
	require.NoError(t, err)

	carts.err = errors.New("redis down")
	require.Error(t, o.ConfirmSuccess(context.Background(), "sid", "cs_7"))
	assert.True(t, ledger.paid["cs_7"], "payment is recorded even when the clear fails")
	assert.False(t, ledger.cleared["cs_7"])

	carts.err = nil
	require.NoError(t, o.ConfirmSuccess(context.Background(), "sid", "cs_7"))
	assert.Equal(t, []string{"sid"}, carts.cleared)
	assert.True(t, ledger.cleared["cs_7"])
	assert.Equal(t, 1, gw.paidCalls, "a paid checkout is not re-verified")
}

func TestConfirmSuccess_UnknownCheckoutSkipsGateway(t *testing.T) {
	gw := &fakeGateway{paid: true}
	o, _, carts := newOrchestrator(gw)

	assert.ErrorIs(t, o.ConfirmSuccess(context.Background(), "sid", "cs_forged"), domain.ErrNotFound)
	assert.Zero(t, gw.paidCalls)
	assert.Empty(t, carts.cleared)
}

func TestConfirmSuccess_ProviderNotFound(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_8", URL: "u"}}
	o, _, _ := newOrchestrator(gw)
	c := cart.New()
	require.NoError(t, c.Set("a", 1))
	_, err := o.CreateSession(context.Background(), "sid", c, "")
	require.NoError(t, err)

	gw.paidErr = fmt.Errorf("checkout session cs_8: %w", domain.ErrNotFound)
	err = o.ConfirmSuccess(context.Background(), "sid", "cs_8")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, domain.IsGatewayUnavailable(err))
}

func TestConfirmSuccess_Rejections(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "cs_5", URL: "u"}}
	o, _, carts := newOrchestrator(gw)
	c := cart.New()
	require.NoError(t, c.Set("a", 1))
	_, err := o.CreateSession(context.Background(), "owner", c, "")
	require.NoError(t, err)

	assert.True(t, domain.IsValidation(o.ConfirmSuccess(context.Background(), "owner", "")))

	gw.paid = false
	assert.ErrorIs(t, o.ConfirmSuccess(context.Background(), "owner", "cs_5"), domain.ErrNotPaid)

	gw.paid = true
	assert.ErrorIs(t, o.ConfirmSuccess(context.Background(), "intruder", "cs_5"), domain.ErrNotFound)

	gw.paidErr = errors.New("503")
	assert.True(t, domain.IsGatewayUnavailable(o.ConfirmSuccess(context.Background(), "owner", "cs_5")))

	assert.Empty(t, carts.cleared)
}
