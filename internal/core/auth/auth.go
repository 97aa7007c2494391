// Package auth provides HMAC-based API key authentication for gRPC services.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/circdesk/loanrules/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// MetadataKey is the gRPC metadata header carrying the API key.
const MetadataKey = "x-api-key"

// lastUsedThrottle bounds how often a key's last_used_at is rewritten.
const lastUsedThrottle = time.Minute

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// tenantIDKey is the context key for storing authenticated tenant ID.
const tenantIDKey = contextKey("tenant_id")

// KeyStore is the storage the authenticator needs.
// Implemented by *db.APIKeyStore.
type KeyStore interface {
	LookupAPIKey(ctx context.Context, hash []byte) (*types.APIKey, error)
	TouchAPIKey(ctx context.Context, id types.APIKeyID, at time.Time) error
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and the key store for verification.
type Authenticator struct {
	secrets map[string][]byte
	keys    KeyStore
	logger  *slog.Logger
	now     func() time.Time

	// Full method names served without authentication.
	public []string
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for background failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPublicPrefix exempts every method whose full name starts with prefix.
func WithPublicPrefix(prefix string) Option {
	return func(a *Authenticator) {
		a.public = append(a.public, prefix)
	}
}

// NewAuthenticator creates an authenticator with HMAC secrets and a key store.
func NewAuthenticator(secrets map[string][]byte, keys KeyStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		secrets: secrets,
		keys:    keys,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate validates an API key and returns its tenant on success.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.TenantID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	key, err := a.keys.LookupAPIKey(ctx, ComputeHMAC(secret, apiKey))
	if errors.Is(err, types.ErrAPIKeyNotFound) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if key.RevokedAt != nil {
		return "", ErrKeyRevoked
	}

	now := a.now()
	if shouldUpdateLastUsed(key.LastUsedAt, now) {
		if err := a.keys.TouchAPIKey(ctx, key.ID, now); err != nil {
			a.logger.Warn("failed to record api key use", "api_key_id", key.ID, "error", err)
		}
	}

	return key.TenantID, nil
}

// shouldUpdateLastUsed throttles last_used_at writes to one per minute.
func shouldUpdateLastUsed(lastUsed *time.Time, now time.Time) bool {
	if lastUsed == nil {
		return true
	}
	return now.Sub(*lastUsed) > lastUsedThrottle
}

func (a *Authenticator) isPublic(fullMethod string) bool {
	for _, prefix := range a.public {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if a.isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		tenantID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			return nil, statusFromError(err)
		}

		return handler(ContextWithTenantID(ctx, tenantID), req)
	}
}

// statusFromError maps authentication failures to gRPC codes.
// Revoked keys confirm the key exists, so they get PermissionDenied.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrBackend):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

// ContextWithTenantID returns a context carrying the authenticated tenant.
func ContextWithTenantID(ctx context.Context, tenantID types.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantIDFromContext extracts tenant ID from context.
// Returns empty string if not found.
func TenantIDFromContext(ctx context.Context) types.TenantID {
	if tenantID, ok := ctx.Value(tenantIDKey).(types.TenantID); ok {
		return tenantID
	}
	return ""
}
