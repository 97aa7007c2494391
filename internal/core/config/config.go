// Package config provides configuration management for the loan rules service.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/circdesk/loanrules/internal/rules"
	"github.com/circdesk/loanrules/internal/types"
)

// ServiceConfig holds configuration for the gRPC loan rules service.
type ServiceConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	MaxRuleTextSize int
	MetricsAddr     string

	// Strategy names applied when rule text has no priority line.
	PrimaryPriority   string
	SecondaryPriority string
	LinePriority      string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:              "0.0.0.0",
		Port:              50051,
		RequestTimeout:    30 * time.Second,
		MaxRuleTextSize:   types.MaxRuleTextSize,
		MetricsAddr:       ":9090",
		PrimaryPriority:   "criterium",
		SecondaryPriority: "number-of-criteria",
		LinePriority:      "last-line",
	}
}

// CompilerOptions builds the rule compiler options from the configured
// default priority strategies.
func (c *ServiceConfig) CompilerOptions() (rules.Options, error) {
	p, err := rules.ParsePriorities(c.PrimaryPriority, c.SecondaryPriority, c.LinePriority)
	if err != nil {
		return rules.Options{}, fmt.Errorf("compiler default priorities: %w", err)
	}
	return rules.Options{DefaultPriorities: p}, nil
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports LR_HMAC_SECRET (single) and LR_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check LR_HMAC_SECRET and LR_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("LR_HMAC_SECRET"); val != "" {
		if err := add("LR_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old keys valid while rotating
	for i := 1; ; i++ {
		key := fmt.Sprintf("LR_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
