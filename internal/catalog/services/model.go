package services

import "time"

// Service is a labor item such as an oil change or brake adjustment. It has no
// stock and no cost basis; selling one moves no inventory.
type Service struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Category  string     `json:"category" db:"category"`
	Price     float64    `json:"price" db:"price"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type CreateRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Category string  `json:"category" validate:"max=100"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type UpdateRequest struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

type ListRequest struct {
	Search *string `json:"search,omitempty"`
	Limit  int     `json:"limit" validate:"gte=0,lte=500"`
	Offset int     `json:"offset" validate:"gte=0"`
}
