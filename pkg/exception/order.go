package exception

import "errors"

// Execution error kinds. Specific errors in og, state and core wrap one of these.
var (
	ErrCommandRejected    = errors.New("execution: command rejected")
	ErrInvariantViolation = errors.New("execution: invariant violation")
)

var (
	ErrOrderUnsupportedAction   = errors.New("order: unsupported action")
	ErrOrderInvalidWorkerConfig = errors.New("order: invalid worker config")
	ErrOrderQueueFull           = errors.New("order: queue full")
	ErrOrderClientStopped       = errors.New("order: client stopped")
)
