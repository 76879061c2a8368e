package domain

import "strings"

type Product struct {
	ID          int64  `db:"id"`
	Key         string `db:"url_key"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Featured    bool   `db:"featured"`
	Price       int64  `db:"price"`      // minor currency units
	SalePrice   *int64 `db:"sale_price"` // nil when the product is not on sale
	Stock       int    `db:"stock"`
	PriceRef    string `db:"price_ref"` // payment provider price id
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

// UnitPrice is the price charged per unit: the sale price when set, else the base price.
func (p Product) UnitPrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

func (p Product) OnSale() bool { return p.SalePrice != nil }

// Availability buckets stock for display: IN_STOCK, LOW_STOCK or OUT_OF_STOCK.
func (p Product) Availability() string {
	switch {
	case p.Stock >= 5:
		return "IN_STOCK"
	case p.Stock > 0:
		return "LOW_STOCK"
	}
	return "OUT_OF_STOCK"
}

// ProductDraft carries the admin-editable fields of a product. The url key is
// assigned by the store on create and is not part of the draft.
type ProductDraft struct {
	Name        string
	Description string
	Featured    bool
	Price       int64
	SalePrice   *int64
	Stock       int
	PriceRef    string
}

func NewProductDraft(name, description string, featured bool, price int64, salePrice *int64, stock int, priceRef string) (ProductDraft, error) {
	d := ProductDraft{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Featured:    featured,
		Price:       price,
		SalePrice:   salePrice,
		Stock:       stock,
		PriceRef:    strings.TrimSpace(priceRef),
	}
	switch {
	case d.Name == "":
		return ProductDraft{}, Invalid("name", "is required")
	case len(d.Name) > 250:
		return ProductDraft{}, Invalid("name", "must be at most 250 characters")
	case d.Description == "":
		return ProductDraft{}, Invalid("description", "is required")
	case d.Price <= 0:
		return ProductDraft{}, Invalid("price", "must be greater than zero")
	case d.SalePrice != nil && *d.SalePrice < 0:
		return ProductDraft{}, Invalid("sale_price", "must not be negative")
	case d.Stock < 0:
		return ProductDraft{}, Invalid("stock", "must not be negative")
	case d.PriceRef == "":
		return ProductDraft{}, Invalid("price_ref", "is required")
	}
	return d, nil
}
