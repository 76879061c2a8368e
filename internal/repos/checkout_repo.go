package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"eshop/internal/checkout"
	"eshop/internal/domain"
)

type CheckoutRepo struct{ db *sqlx.DB }

func NewCheckoutRepo(db *sqlx.DB) *CheckoutRepo { return &CheckoutRepo{db: db} }

// ---------- Admin list summary ----------
type CheckoutSummary struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Subtotal  int64  `db:"subtotal"`
	Status    string `db:"status"`
	Units     int    `db:"units"`
	CreatedAt string `db:"created_at"`
	PaidAt    string `db:"paid_at"`
}

type CheckoutLineRow struct {
	Key       string `db:"url_key"`
	Name      string `db:"name"`
	PriceRef  string `db:"price_ref"`
	Qty       int    `db:"qty"`
	UnitPrice int64  `db:"unit_price"`
	Total     int64  `db:"total"`
}

// Record stores a started checkout with the lines sent to the provider.
func (r *CheckoutRepo) Record(ctx context.Context, rec checkout.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO checkouts(id, session_id, subtotal, status, created_at)
	  VALUES(?, ?, ?, 'PENDING', CURRENT_TIMESTAMP)
	`, rec.ID, rec.SessionID, rec.Subtotal); err != nil {
		return err
	}
	for _, l := range rec.Lines {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO checkout_lines(checkout_id, url_key, price_ref, qty, unit_price)
		  VALUES(?, ?, ?, ?, ?)
		`, rec.ID, l.Key, l.PriceRef, l.Qty, l.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Status reports whether the checkout owned by sid is paid and whether the
// buyer's cart has been cleared since.
func (r *CheckoutRepo) Status(ctx context.Context, id, sid string) (checkout.Status, error) {
	var row struct {
		Status  string `db:"status"`
		Cleared bool   `db:"cleared"`
	}
	err := r.db.GetContext(ctx, &row, `
	  SELECT status, cart_cleared_at IS NOT NULL AS cleared
	  FROM checkouts WHERE id = ? AND session_id = ?
	`, id, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return checkout.Status{}, domain.ErrNotFound
	}
	if err != nil {
		return checkout.Status{}, err
	}
	return checkout.Status{Paid: row.Status == "PAID", CartCleared: row.Cleared}, nil
}

// MarkCartCleared notes that the buyer's cart was emptied after payment.
func (r *CheckoutRepo) MarkCartCleared(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
	  UPDATE checkouts SET cart_cleared_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND status = 'PAID' AND cart_cleared_at IS NULL
	`, id)
	return err
}

// MarkPaid settles a pending checkout and decrements stock for its lines,
// never below zero, in one transaction.
func (r *CheckoutRepo) MarkPaid(ctx context.Context, id, sid string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.GetContext(ctx, &status, `SELECT status FROM checkouts WHERE id = ? AND session_id = ?`, id, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if status == "PAID" {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
	  UPDATE checkouts SET status = 'PAID', paid_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
	  UPDATE products
	  SET stock = MAX(stock - (SELECT cl.qty FROM checkout_lines cl
	                           WHERE cl.checkout_id = ? AND cl.url_key = products.url_key), 0),
	      updated_at = CURRENT_TIMESTAMP
	  WHERE url_key IN (SELECT url_key FROM checkout_lines WHERE checkout_id = ?)
	`, id, id); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *CheckoutRepo) Get(ctx context.Context, id string) (CheckoutSummary, []CheckoutLineRow, error) {
	var s CheckoutSummary
	err := r.db.GetContext(ctx, &s, `
	  SELECT c.id, c.session_id, c.subtotal, c.status,
	         COALESCE((SELECT SUM(qty) FROM checkout_lines WHERE checkout_id = c.id), 0) AS units,
	         COALESCE(c.created_at,'') AS created_at, COALESCE(c.paid_at,'') AS paid_at
	  FROM checkouts c WHERE c.id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CheckoutSummary{}, nil, domain.ErrNotFound
	}
	if err != nil {
		return CheckoutSummary{}, nil, err
	}

	items := []CheckoutLineRow{}
	if err := r.db.SelectContext(ctx, &items, `
	  SELECT cl.url_key, COALESCE(p.name, cl.url_key) AS name, cl.price_ref, cl.qty, cl.unit_price,
	         (cl.qty * cl.unit_price) AS total
	  FROM checkout_lines cl
	  LEFT JOIN products p ON p.url_key = cl.url_key
	  WHERE cl.checkout_id = ?
	  ORDER BY name
	`, id); err != nil {
		return CheckoutSummary{}, nil, err
	}
	return s, items, nil
}

func (r *CheckoutRepo) ListLatest(ctx context.Context, limit int) ([]CheckoutSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []CheckoutSummary{}
	err := r.db.SelectContext(ctx, &out, `
	  SELECT c.id, c.session_id, c.subtotal, c.status,
	         COALESCE((SELECT SUM(qty) FROM checkout_lines WHERE checkout_id = c.id), 0) AS units,
	         COALESCE(c.created_at,'') AS created_at, COALESCE(c.paid_at,'') AS paid_at
	  FROM checkouts c
	  ORDER BY datetime(c.created_at) DESC, c.rowid DESC
	  LIMIT ?
	`, limit)
	return out, err
}
