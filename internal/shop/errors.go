package shop

import "errors"

// Workflow error taxonomy. Handlers map these to HTTP statuses; raw
// upstream error text never reaches end users.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotConfirmed  = errors.New("payment could not be confirmed")
	ErrAlreadyProcessed     = errors.New("purchase already processed")
	ErrNoItemAvailable      = errors.New("no item available")
	ErrStorageInconsistency = errors.New("stored object missing")
)
