package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestLoadOverrides_MissingFileIsEmpty(t *testing.T) {
	o, err := LoadOverrides(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(o.Migrations) != 0 {
		t.Fatalf("expected empty overrides")
	}

	o, err = LoadOverrides("")
	if err != nil || len(o.Migrations) != 0 {
		t.Fatalf("empty path should yield empty overrides, got %v / %v", o, err)
	}
}

func TestLoadOverrides_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	raw := `
migrations:
  normalize-emails:
    disabled: true
  backfill-embeddings:
    defaultBatchSize: 25
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}

	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	if !o.Migrations["normalize-emails"].Disabled {
		t.Fatalf("expected normalize-emails disabled")
	}
	if got := o.Migrations["backfill-embeddings"].DefaultBatchSize; got != 25 {
		t.Fatalf("expected batch size 25, got %d", got)
	}
}

func TestApplyOverrides_DisablesAndRetunes(t *testing.T) {
	r, err := NewCatalog(nil, DefaultCatalogConfig())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	ApplyOverrides(r, &Overrides{Migrations: map[string]MigrationOverride{
		"normalize-emails":    {Disabled: true},
		"backfill-embeddings": {DefaultBatchSize: 25},
		"unknown-migration":   {Disabled: true},
	}}, testLogger(t))

	if _, err := r.Get("normalize-emails"); err == nil {
		t.Fatalf("normalize-emails should be removed")
	}
	m, err := r.Get("backfill-embeddings")
	if err != nil {
		t.Fatalf("backfill-embeddings should survive: %v", err)
	}
	if got := m.Definition().DefaultBatchSize; got != 25 {
		t.Fatalf("expected overridden batch size 25, got %d", got)
	}
	// Untouched entries keep their defaults.
	m, err = r.Get("backfill-circle-counts")
	if err != nil {
		t.Fatalf("backfill-circle-counts should survive: %v", err)
	}
	if got := m.Definition().DefaultBatchSize; got != 200 {
		t.Fatalf("expected default batch size 200, got %d", got)
	}
}
