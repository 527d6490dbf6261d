package registry

import (
	"testing"
)

func TestNewCatalog_RegistersAllMigrations(t *testing.T) {
	r, err := NewCatalog(nil, DefaultCatalogConfig())
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	defs := r.List()
	if len(defs) != 4 {
		t.Fatalf("expected 4 catalog migrations, got %d", len(defs))
	}

	byID := map[string]Definition{}
	for _, def := range defs {
		byID[def.ID] = def
	}

	for _, id := range []string{
		"backfill-circle-counts",
		"backfill-embeddings",
		"normalize-emails",
		"purge-stale-insights",
	} {
		if _, ok := byID[id]; !ok {
			t.Fatalf("missing migration %s", id)
		}
	}

	purge := byID["purge-stale-insights"]
	if !purge.Destructive {
		t.Fatalf("purge-stale-insights must be destructive")
	}
	if purge.SupportsResume {
		t.Fatalf("purge-stale-insights must not support resume")
	}
	for id, def := range byID {
		if !def.SupportsDryRun {
			t.Fatalf("%s must support dry run", id)
		}
		if def.DefaultBatchSize <= 0 {
			t.Fatalf("%s has no default batch size", id)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  User@Example.COM  ": "user@example.com",
		"already@example.com":  "already@example.com",
		"":                     "",
	}
	for in, want := range cases {
		if got := normalizeEmail(in); got != want {
			t.Fatalf("normalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
