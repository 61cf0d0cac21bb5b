package exception

import "errors"

// Value type errors. A mismatch is a caller defect, not a runtime condition.
var (
	ErrPrecisionMismatch = errors.New("value: precision mismatch")
	ErrCurrencyMismatch  = errors.New("value: currency mismatch")
	ErrPrecisionTooHigh  = errors.New("value: precision too high")
	ErrNegativeValue     = errors.New("value: negative value")
	ErrValueOverflow     = errors.New("value: overflow")
	ErrUnknownCurrency   = errors.New("value: unknown currency")
)
