package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/circdesk/loanrules/internal/types"
)

// LoanRulesStore persists the rule text of each tenant. A tenant has at most
// one record; Put replaces its text and keeps its id.
type LoanRulesStore struct {
	queries *Queries
	now     func() time.Time
}

// NewLoanRulesStore creates a store over loaded named queries.
func NewLoanRulesStore(queries *Queries) *LoanRulesStore {
	return &LoanRulesStore{queries: queries, now: time.Now}
}

type loanRulesRow struct {
	ID        string `db:"loan_rules_id"`
	TenantID  string `db:"tenant_id"`
	Text      string `db:"rules_text"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r loanRulesRow) toLoanRules() (*types.LoanRules, error) {
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("loan rules %s created_at: %w", r.ID, err)
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("loan rules %s updated_at: %w", r.ID, err)
	}
	return &types.LoanRules{
		ID:        types.LoanRulesID(r.ID),
		TenantID:  types.TenantID(r.TenantID),
		Text:      r.Text,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// Get returns the tenant's record or types.ErrLoanRulesNotFound.
func (s *LoanRulesStore) Get(ctx context.Context, tenant types.TenantID) (*types.LoanRules, error) {
	if err := types.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	var row loanRulesRow
	err := s.queries.Get(ctx, "get-loan-rules", &row, string(tenant))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrLoanRulesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan rules: %w", err)
	}
	return row.toLoanRules()
}

// Put stores text as the tenant's rule text and returns the stored record.
// A fresh id is only used when the tenant has no record yet.
func (s *LoanRulesStore) Put(ctx context.Context, tenant types.TenantID, text string) (*types.LoanRules, error) {
	if err := types.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	now := formatTimestamp(s.now())
	_, err := s.queries.Exec(ctx, "upsert-loan-rules",
		string(types.NewLoanRulesID()), string(tenant), text, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert loan rules: %w", err)
	}
	return s.Get(ctx, tenant)
}
