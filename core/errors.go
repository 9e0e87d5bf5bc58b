package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many mounted sessions")

	// Wallet provider lifecycle
	ErrInitFailed     = errors.New("auth client initialization failed")
	ErrNotInitialized = errors.New("auth client not initialized yet")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrChainMismatch  = errors.New("node chain id does not match configuration")
	ErrClosed         = errors.New("already closed")

	// Provider-dependent operations
	ErrProviderMissing     = errors.New("provider not initialized yet")
	ErrUnsupportedMethod   = errors.New("unsupported provider method")
	ErrMintInFlight        = errors.New("mint already in progress")
	ErrEmptyURI            = errors.New("mint uri is empty")
	ErrTransactionReverted = errors.New("transaction reverted")
)
