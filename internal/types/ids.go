package types

import "github.com/google/uuid"

// NewLoanRulesID generates a UUIDv7 loan rules record identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewLoanRulesID() LoanRulesID {
	return LoanRulesID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key identifier.
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.Must(uuid.NewV7()).String())
}

// ParseLoanRulesID validates and converts a string to LoanRulesID.
func ParseLoanRulesID(s string) (LoanRulesID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return LoanRulesID(s), nil
}

// ValidateTenantID rejects empty and oversized tenant identifiers.
func ValidateTenantID(tenant TenantID) error {
	if tenant == "" || len(tenant) > MaxTenantIDLength {
		return ErrInvalidTenantID
	}
	return nil
}
