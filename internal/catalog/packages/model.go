package packages

import "time"

// Package bundles products and services under a single seller-set price. The
// bundle price is independent of component prices on purpose: it is how the
// workshop expresses promo pricing.
type Package struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Items       []Item     `json:"items"`
}

// Item is one package component. Exactly one of ProductID/ServiceID is set.
type Item struct {
	ID        int64  `json:"id" db:"id"`
	PackageID int64  `json:"package_id" db:"package_id"`
	ProductID *int64 `json:"product_id,omitempty" db:"product_id"`
	ServiceID *int64 `json:"service_id,omitempty" db:"service_id"`
	Qty       int    `json:"qty" db:"qty"`
}

type ItemRequest struct {
	ProductID *int64 `json:"product_id,omitempty"`
	ServiceID *int64 `json:"service_id,omitempty"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

type CreateRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description" validate:"max=500"`
	Price       float64       `json:"price" validate:"gte=0"`
	Items       []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

type ListRequest struct {
	Search     *string `json:"search,omitempty"`
	ActiveOnly bool    `json:"active_only"`
	Limit      int     `json:"limit" validate:"gte=0,lte=500"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
