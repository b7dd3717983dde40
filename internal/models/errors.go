package models

import (
	"errors"
)

var (
	// ErrValidation marks bad caller input. Not retryable.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition marks an attempt to move a record out of a
	// terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrPaymentExpired marks a confirmation attempt on a pending payment
	// past its window.
	ErrPaymentExpired = errors.New("payment expired")
)
