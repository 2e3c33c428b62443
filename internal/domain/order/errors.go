package order

import "errors"

var (
	// ErrOrderNotFound is returned when no row matches the lookup
	ErrOrderNotFound = errors.New("order: order not found")

	// ErrInvalidOrder is returned when a record is missing required identity fields
	ErrInvalidOrder = errors.New("order: invalid order record")

	// ErrDeadLetterNotFound is returned when no dead-letter entry matches the key
	ErrDeadLetterNotFound = errors.New("order: dead letter entry not found")
)
