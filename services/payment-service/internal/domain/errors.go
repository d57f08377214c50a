package domain

import (
	"errors"
	"fmt"
)

var ErrPaymentNotFound = errors.New("payment not found")

// IllegalStateError reports a state-machine violation, e.g. refunding a
// payment that never completed.
type IllegalStateError struct {
	Current PaymentStatus
	Target  PaymentStatus
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("cannot move payment from %s to %s", e.Current, e.Target)
}
