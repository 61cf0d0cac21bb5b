package exception

import "errors"

var (
	ErrJournalQueueFull       = errors.New("journal: queue full")
	ErrJournalClosed          = errors.New("journal: writer closed")
	ErrJournalNotStarted      = errors.New("journal: writer not started")
	ErrJournalCorrupted       = errors.New("journal: corrupted record")
	ErrJournalPayloadTooLarge = errors.New("journal: payload too large")
)
