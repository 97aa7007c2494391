package types

import "errors"

// Sentinel errors for loan rules operations.
var (
	// ErrLoanRulesNotFound indicates the tenant has no stored rule text yet.
	ErrLoanRulesNotFound = errors.New("loan rules not found")

	// ErrMissingRuleText indicates a write request without rule text.
	ErrMissingRuleText = errors.New("loan rules text is required")

	// ErrRuleTextTooLarge indicates rule text exceeds the configured size limit.
	ErrRuleTextTooLarge = errors.New("loan rules text exceeds maximum size")

	// ErrAPIKeyNotFound indicates no stored key matches the presented hash or id.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrInvalidTenantID indicates an empty or oversized tenant identifier.
	ErrInvalidTenantID = errors.New("invalid tenant id")
)
