package book

import "errors"

// Sentinel errors returned by the book's public API. Callers should compare
// against these with errors.Is; internal wrapping may add context.
var (
	// ErrOrderNotFound is returned by Update and Remove when no resting
	// order with the given ID exists.
	ErrOrderNotFound = errors.New("book: order not found")

	// ErrDuplicateOrder is returned by Add when an order with the given ID
	// is already resting in the book.
	ErrDuplicateOrder = errors.New("book: duplicate order id")

	// ErrInvalidOrder is returned when an order fails basic validation
	// (zero size on Add, zero or negative price, unrecognized side), and by
	// Update when the caller's side or price does not match the resting
	// order. The reference implementation silently accepted a mismatch and
	// mutated the wrong price level's aggregate; this book rejects it
	// instead.
	ErrInvalidOrder = errors.New("book: invalid order")

	// ErrInvariantViolation is the panic value used by debug-mode assertion
	// checks (see assert.go). It should never surface outside tests.
	ErrInvariantViolation = errors.New("book: invariant violation")
)
