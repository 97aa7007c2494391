package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/circdesk/loanrules/internal/types"
)

// APIKeyStore persists API key HMACs and their tenant binding.
type APIKeyStore struct {
	queries *Queries
	now     func() time.Time
}

// NewAPIKeyStore creates a store over loaded named queries.
func NewAPIKeyStore(queries *Queries) *APIKeyStore {
	return &APIKeyStore{queries: queries, now: time.Now}
}

type apiKeyRow struct {
	ID         string         `db:"api_key_id"`
	TenantID   string         `db:"tenant_id"`
	Name       string         `db:"name"`
	CreatedAt  string         `db:"created_at"`
	LastUsedAt sql.NullString `db:"last_used_at"`
	RevokedAt  sql.NullString `db:"revoked_at"`
}

func (r apiKeyRow) toAPIKey() (*types.APIKey, error) {
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("api key %s created_at: %w", r.ID, err)
	}
	lastUsed, err := parseNullTimestamp(r.LastUsedAt)
	if err != nil {
		return nil, fmt.Errorf("api key %s last_used_at: %w", r.ID, err)
	}
	revoked, err := parseNullTimestamp(r.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("api key %s revoked_at: %w", r.ID, err)
	}
	return &types.APIKey{
		ID:         types.APIKeyID(r.ID),
		TenantID:   types.TenantID(r.TenantID),
		Name:       r.Name,
		CreatedAt:  created,
		LastUsedAt: lastUsed,
		RevokedAt:  revoked,
	}, nil
}

// LookupAPIKey finds the key whose HMAC equals hash.
// Returns types.ErrAPIKeyNotFound when no key matches.
func (s *APIKeyStore) LookupAPIKey(ctx context.Context, hash []byte) (*types.APIKey, error) {
	var row apiKeyRow
	err := s.queries.Get(ctx, "get-api-key-by-hash", &row, hex.EncodeToString(hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	return row.toAPIKey()
}

// TouchAPIKey records a successful authentication.
func (s *APIKeyStore) TouchAPIKey(ctx context.Context, id types.APIKeyID, at time.Time) error {
	if _, err := s.queries.Exec(ctx, "update-last-used", formatTimestamp(at), string(id)); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// CreateAPIKey stores the HMAC of a new key for tenant.
func (s *APIKeyStore) CreateAPIKey(ctx context.Context, tenant types.TenantID, name string, hash []byte) (*types.APIKey, error) {
	if err := types.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	key := &types.APIKey{
		ID:        types.NewAPIKeyID(),
		TenantID:  tenant,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.queries.Exec(ctx, "insert-api-key",
		string(key.ID), string(tenant), name, hex.EncodeToString(hash), formatTimestamp(key.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// RevokeAPIKey marks a key revoked. Revoking twice reports ErrAPIKeyNotFound.
func (s *APIKeyStore) RevokeAPIKey(ctx context.Context, id types.APIKeyID) error {
	res, err := s.queries.Exec(ctx, "revoke-api-key", formatTimestamp(s.now()), string(id))
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n == 0 {
		return types.ErrAPIKeyNotFound
	}
	return nil
}

// ListAPIKeys returns the tenant's keys, oldest first.
func (s *APIKeyStore) ListAPIKeys(ctx context.Context, tenant types.TenantID) ([]*types.APIKey, error) {
	if err := types.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	var rows []apiKeyRow
	if err := s.queries.Select(ctx, "list-api-keys", &rows, string(tenant)); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	keys := make([]*types.APIKey, 0, len(rows))
	for _, r := range rows {
		k, err := r.toAPIKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
