package services

import (
	"errors"
	"fmt"
)

// ServiceError carries the HTTP status a controller should answer with.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newError(code int, format string, args ...interface{}) *ServiceError {
	return &ServiceError{StatusCode: code, Message: fmt.Sprintf(format, args...)}
}

// OutOfStockError names the item whose reservation failed so the caller can
// report it inline instead of as a generic failure.
type OutOfStockError struct {
	MedicineID   string
	MedicineName string
	Requested    int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested %d)", e.MedicineName, e.Requested)
}

// ErrStockCommitFailed signals that a held reservation could not be
// converted into a deduction at verification time. This indicates a
// reserve/commit accounting inconsistency and needs operator attention;
// the order is left in proof_uploaded.
var ErrStockCommitFailed = errors.New("stock commit failed: reserved quantity inconsistent")
