package models

import "errors"

// Sentinel errors used across the services. The wire boundary collapses them
// to boolean results; internally they drive logging and status codes.
var (
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrNotFound            = errors.New("record not found")
	ErrValidation          = errors.New("malformed argument")
	ErrInsufficientPayment = errors.New("payment below required amount")
	ErrSupplyExhausted     = errors.New("requested quantity exceeds remaining supply")
	ErrAlreadyRedeemed     = errors.New("ticket already used")
	ErrAlreadyDeployed     = errors.New("event already deployed")
	ErrDuplicateTransfer   = errors.New("transfer already applied")
	ErrUpstreamCall        = errors.New("token contract call failed")
)
