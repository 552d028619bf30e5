package vindecode

import "fmt"

// TransportError represents a failed exchange with the decode service.
type TransportError struct {
	VIN     string
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vin decode transport error for %s: %s: %v", e.VIN, e.Message, e.Cause)
	}
	return fmt.Sprintf("vin decode transport error for %s: %s", e.VIN, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
