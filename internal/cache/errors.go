package cache

import "fmt"

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = fmt.Errorf("cache: record not found")

	// ErrClosed is returned when using a store after Close
	ErrClosed = fmt.Errorf("cache: store is closed")

	// ErrInvalidTransaction is returned when a transaction cannot begin or commit
	ErrInvalidTransaction = fmt.Errorf("cache: invalid transaction")
)
