package products

import "time"

// Product is a stocked catalog item. Stock and PriceBuy are owned by the stock
// ledger: nothing outside it may mutate them after creation.
type Product struct {
	ID            int64      `json:"id" db:"id"`
	SKU           string     `json:"sku" db:"sku"`
	Name          string     `json:"name" db:"name"`
	Category      string     `json:"category" db:"category"`
	PriceBuy      float64    `json:"price_buy" db:"price_buy"`
	PriceSell     float64    `json:"price_sell" db:"price_sell"`
	Stock         int        `json:"stock" db:"stock"`
	MinStockAlert int        `json:"min_stock_alert" db:"min_stock_alert"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the product has been soft-deleted.
func (p Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

type CreateRequest struct {
	SKU           string  `json:"sku" validate:"required,max=50"`
	Name          string  `json:"name" validate:"required,max=200"`
	Category      string  `json:"category" validate:"max=100"`
	PriceBuy      float64 `json:"price_buy" validate:"gte=0"`
	PriceSell     float64 `json:"price_sell" validate:"gte=0"`
	MinStockAlert int     `json:"min_stock_alert" validate:"gte=0"`
}

type UpdateRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	PriceSell     *float64 `json:"price_sell,omitempty" validate:"omitempty,gte=0"`
	MinStockAlert *int     `json:"min_stock_alert,omitempty" validate:"omitempty,gte=0"`
}

type ListRequest struct {
	Search   *string `json:"search,omitempty"`
	Category *string `json:"category,omitempty"`
	LowStock bool    `json:"low_stock"`
	Limit    int     `json:"limit" validate:"gte=0,lte=500"`
	Offset   int     `json:"offset" validate:"gte=0"`
}
