// Package types provides domain models shared across loanrules components.
//
// The compiler in internal/rules, the store in internal/core/db and the gRPC
// service in internal/core/api all exchange these values. Wire formats are
// converted at the API boundary; nothing here imports protobuf.
package types

import "time"

// TenantID identifies the tenant that owns a loan rules record.
// Every tenant has at most one record (tenant-scoped singleton).
type TenantID string

// LoanRulesID represents a UUIDv7 loan rules record identifier.
// Assigned on first store and kept across updates.
type LoanRulesID string

// APIKeyID represents a UUIDv7 API key identifier.
type APIKeyID string

// LoanRules is the stored form of an administrator-authored rule text.
// The compiled output is never part of the record; it is recomputed on read.
type LoanRules struct {
	ID        LoanRulesID
	TenantID  TenantID
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKey is a stored API key. Only the HMAC of the key is persisted.
type APIKey struct {
	ID         APIKeyID
	TenantID   TenantID
	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// Field names of the loan rules document exchanged with clients.
const (
	// FieldRulesText carries the raw rule text.
	FieldRulesText = "loanRulesAsTextFile"

	// FieldRulesDrools carries the derived Drools text. Ignored on write.
	FieldRulesDrools = "loanRulesAsDrools"

	// FieldRuleCount carries the number of generated rules in compile previews.
	FieldRuleCount = "ruleCount"
)

// Resource limits enforced at the service boundary.
const (
	// MaxRuleTextSize caps accepted rule text. 1MB is far beyond any real
	// circulation rule file and keeps a single compile bounded.
	MaxRuleTextSize = 1024 * 1024

	// MaxTenantIDLength bounds tenant identifiers read from the api_keys table.
	MaxTenantIDLength = 128
)
