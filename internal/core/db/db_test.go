package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/circdesk/loanrules/internal/types"
	"github.com/jmoiron/sqlx"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open("sqlite://" + filepath.Join(t.TempDir(), "loanrules.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func migratedQueries(t *testing.T) *Queries {
	t.Helper()
	database := openTestDB(t)
	if _, err := MigrateUp(context.Background(), database); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	queries, err := LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	return queries
}

func TestDataSourceFromURL(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		source  string
		wantErr bool
	}{
		{url: "sqlite://data.db", driver: "sqlite3", source: "data.db?" + sqliteDefaultParams},
		{url: "sqlite:///var/lib/lr.db", driver: "sqlite3", source: "/var/lib/lr.db?" + sqliteDefaultParams},
		{url: "sqlite:///var/lib/lr.db?_busy_timeout=100", driver: "sqlite3", source: "/var/lib/lr.db?_busy_timeout=100"},
		{url: "postgres://u:p@db:5432/lr?sslmode=disable", driver: "postgres", source: "postgres://u:p@db:5432/lr?sslmode=disable"},
		{url: "mysql://db/lr", wantErr: true},
		{url: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, source, err := dataSourceFromURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if driver != tt.driver || source != tt.source {
				t.Errorf("got (%s, %s), want (%s, %s)", driver, source, tt.driver, tt.source)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (x TEXT);\n\n-- comment\nCREATE INDEX i ON a (x);\n"
	stmts := splitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x TEXT)" {
		t.Errorf("unexpected first statement: %q", stmts[0])
	}
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	if err := RequireMigrations(ctx, database); err == nil {
		t.Fatal("expected RequireMigrations to fail before migrating")
	}

	ran, err := MigrateUp(ctx, database)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if len(ran) == 0 {
		t.Fatal("expected at least one migration to run")
	}

	again, err := MigrateUp(ctx, database)
	if err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no pending migrations, ran %v", again)
	}

	statuses, err := MigrateStatus(ctx, database)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not reported applied", s.ID)
		}
	}

	if err := RequireMigrations(ctx, database); err != nil {
		t.Errorf("RequireMigrations failed after migrating: %v", err)
	}

	t.Run("tampered checksum rejected", func(t *testing.T) {
		if _, err := database.Exec("UPDATE migrations SET checksum = 'tampered' WHERE migration_id = ?", ran[0]); err != nil {
			t.Fatal(err)
		}
		if _, err := MigrateUp(ctx, database); err == nil {
			t.Error("expected checksum validation error")
		}
	})
}

func TestLoanRulesStore(t *testing.T) {
	ctx := context.Background()
	store := NewLoanRulesStore(migratedQueries(t))

	t.Run("missing record", func(t *testing.T) {
		_, err := store.Get(ctx, "diku")
		if !errors.Is(err, types.ErrLoanRulesNotFound) {
			t.Fatalf("expected ErrLoanRulesNotFound, got %v", err)
		}
	})

	t.Run("invalid tenant", func(t *testing.T) {
		if _, err := store.Put(ctx, "", "fallback-policy: p"); !errors.Is(err, types.ErrInvalidTenantID) {
			t.Fatalf("expected ErrInvalidTenantID, got %v", err)
		}
	})

	t.Run("upsert keeps id", func(t *testing.T) {
		first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		store.now = func() time.Time { return first }

		created, err := store.Put(ctx, "diku", "fallback-policy: p1")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if _, err := types.ParseLoanRulesID(string(created.ID)); err != nil {
			t.Errorf("stored id is not a UUID: %v", err)
		}

		second := first.Add(time.Hour)
		store.now = func() time.Time { return second }

		updated, err := store.Put(ctx, "diku", "fallback-policy: p2")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if updated.ID != created.ID {
			t.Errorf("id changed on update: %s -> %s", created.ID, updated.ID)
		}
		if updated.Text != "fallback-policy: p2" {
			t.Errorf("unexpected text: %q", updated.Text)
		}
		if !updated.CreatedAt.Equal(first) || !updated.UpdatedAt.Equal(second) {
			t.Errorf("timestamps = (%v, %v), want (%v, %v)", updated.CreatedAt, updated.UpdatedAt, first, second)
		}
	})

	t.Run("tenants isolated", func(t *testing.T) {
		if _, err := store.Put(ctx, "other", "fallback-policy: q"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := store.Get(ctx, "diku")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Text != "fallback-policy: p2" {
			t.Errorf("tenant diku sees %q", got.Text)
		}
	})
}

func TestAPIKeyStore(t *testing.T) {
	ctx := context.Background()
	store := NewAPIKeyStore(migratedQueries(t))
	hash := []byte{0xde, 0xad, 0xbe, 0xef}

	key, err := store.CreateAPIKey(ctx, "diku", "circ-desk", hash)
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	got, err := store.LookupAPIKey(ctx, hash)
	if err != nil {
		t.Fatalf("LookupAPIKey failed: %v", err)
	}
	if got.ID != key.ID || got.TenantID != "diku" || got.LastUsedAt != nil || got.RevokedAt != nil {
		t.Errorf("unexpected key: %+v", got)
	}

	if _, err := store.LookupAPIKey(ctx, []byte{0x01}); !errors.Is(err, types.ErrAPIKeyNotFound) {
		t.Errorf("expected ErrAPIKeyNotFound, got %v", err)
	}

	used := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := store.TouchAPIKey(ctx, key.ID, used); err != nil {
		t.Fatalf("TouchAPIKey failed: %v", err)
	}
	got, _ = store.LookupAPIKey(ctx, hash)
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(used) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, used)
	}

	if err := store.RevokeAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("RevokeAPIKey failed: %v", err)
	}
	if err := store.RevokeAPIKey(ctx, key.ID); !errors.Is(err, types.ErrAPIKeyNotFound) {
		t.Errorf("second revoke: expected ErrAPIKeyNotFound, got %v", err)
	}
	got, _ = store.LookupAPIKey(ctx, hash)
	if got.RevokedAt == nil {
		t.Error("expected RevokedAt to be set")
	}

	keys, err := store.ListAPIKeys(ctx, "diku")
	if err != nil {
		t.Fatalf("ListAPIKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0].ID != key.ID {
		t.Errorf("unexpected keys: %+v", keys)
	}
}
