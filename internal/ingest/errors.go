package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOwner is returned when an insert is attempted without an authenticated owner.
	ErrMissingOwner = errors.New("missing owner")
	// ErrDuplicateVehicle is returned by a Store when (owner, vin) already exists.
	ErrDuplicateVehicle = errors.New("duplicate vehicle")
	// ErrVehicleNotFound is returned by a Store when a status update matches no row.
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// OwnershipError reports a record that cannot be written for lack of an owner.
type OwnershipError struct {
	VIN string
}

func (e *OwnershipError) Error() string {
	if e.VIN != "" {
		return fmt.Sprintf("cannot insert vehicle %s without an authenticated owner", e.VIN)
	}
	return "cannot insert vehicle without an authenticated owner"
}

func (e *OwnershipError) Unwrap() error {
	return ErrMissingOwner
}

// StoreError wraps a persistence failure for one record.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
