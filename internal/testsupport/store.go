package testsupport

import (
	"context"
	"testing"

	"mediapack/internal/audit"
	"mediapack/internal/config"
)

// MustOpenAudit opens the audit datastore at cfg.Paths.AuditDB, inserts seed
// and closes the store when the test ends.
func MustOpenAudit(t testing.TB, cfg *config.Config, seed ...audit.Record) *audit.Store {
	t.Helper()

	store, err := audit.Open(cfg.Paths.AuditDB)
	if err != nil {
		t.Fatalf("open audit store %s: %v", cfg.Paths.AuditDB, err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, rec := range seed {
		if _, err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("seed audit record %+v: %v", rec, err)
		}
	}
	return store
}
