package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// Core Simulation Errors
	ErrInvalidProposal = errors.New("proposal has non-positive amount or price")
	ErrUnknownPosition = errors.New("position not found or already closed")
	ErrNotReady        = errors.New("promotion criteria not met for live trading")

	// General Errors
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrContextCanceled    = errors.New("operation canceled via context")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Journal Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
