package shared

import "errors"

var (
	// ErrNotFound indicates a missing or soft-deleted referenced entity.
	ErrNotFound = errors.New("resource not found")
	// ErrInsufficientStock indicates a requested quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates an operation illegal for the current status.
	ErrInvalidState = errors.New("operation not allowed in current status")
	// ErrInvalidDiscount indicates a discount that would drive a price negative.
	ErrInvalidDiscount = errors.New("discount exceeds price")
	// ErrValidation indicates missing or malformed required fields.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique-constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
