package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"eshop/internal/domain"
)

const productCols = `
    id, url_key, name, description, featured, price, sale_price, stock, price_ref,
    COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at`

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) ByKey(ctx context.Context, key string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE url_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

// ProductByKey lets the repo serve as the cart's catalog lookup.
func (r *ProductRepo) ProductByKey(ctx context.Context, key string) (domain.Product, error) {
	return r.ByKey(ctx, key)
}

func (r *ProductRepo) ListFeatured(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products WHERE featured = 1 ORDER BY id`)
	return out, err
}

func (r *ProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+productCols+` FROM products ORDER BY name`)
	return out, err
}

func (r *ProductRepo) Create(ctx context.Context, key string, d domain.ProductDraft) (domain.Product, error) {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO products(url_key,name,description,featured,price,sale_price,stock,price_ref,created_at)
	  VALUES(?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, key, d.Name, d.Description, d.Featured, d.Price, d.SalePrice, d.Stock, d.PriceRef)
	if err != nil {
		return domain.Product{}, err
	}
	return r.ByKey(ctx, key)
}

// Update rewrites every editable field. The url key is the lookup, never a target.
func (r *ProductRepo) Update(ctx context.Context, key string, d domain.ProductDraft) (domain.Product, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE products
	  SET name = ?, description = ?, featured = ?, price = ?, sale_price = ?, stock = ?, price_ref = ?,
	      updated_at = CURRENT_TIMESTAMP
	  WHERE url_key = ?
	`, d.Name, d.Description, d.Featured, d.Price, d.SalePrice, d.Stock, d.PriceRef, key)
	if err != nil {
		return domain.Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return r.ByKey(ctx, key)
}
