package repository

import "errors"

var (
	// ErrNotFound is returned when a referenced document does not exist or
	// is outside the acting principal's scope.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock is returned when a conditional reserve finds
	// less availability than requested at the moment of update.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrReleaseExceedsReserved is returned when a release or commit would
	// drive the reserved counter negative.
	ErrReleaseExceedsReserved = errors.New("release exceeds reserved quantity")
)
