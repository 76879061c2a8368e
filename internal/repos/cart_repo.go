package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"eshop/internal/cart"
)

// CartRepo stores one cart per session id in sqlite.
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// Load returns the stored cart and whether one existed.
func (r *CartRepo) Load(ctx context.Context, sid string) (*cart.Cart, bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM carts WHERE session_id = ?`, sid); err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	c := cart.New()
	if err := r.db.SelectContext(ctx, &c.Lines, `
	  SELECT url_key, qty FROM cart_lines WHERE session_id = ? ORDER BY position
	`, sid); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Save replaces the stored lines with the cart's lines, keeping their order.
func (r *CartRepo) Save(ctx context.Context, sid string, c *cart.Cart) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO carts(session_id, updated_at) VALUES(?, CURRENT_TIMESTAMP)
	  ON CONFLICT(session_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`, sid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = ?`, sid); err != nil {
		return err
	}
	for i, l := range c.Lines {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO cart_lines(session_id, url_key, position, qty) VALUES(?,?,?,?)
		`, sid, l.Key, i, l.Qty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CartRepo) Delete(ctx context.Context, sid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = ?`, sid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE session_id = ?`, sid); err != nil {
		return err
	}
	return tx.Commit()
}
