package configs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lumenapp/admin-backend/internal/data/repos/testutil"
	"github.com/lumenapp/admin-backend/internal/domain/config"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
)

func TestGetOrInitialize_MaterializesDefaultOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewConfigDocRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	doc, err := repo.GetOrInitialize(dbc, config.KeyPricing, config.DefaultPricing())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if doc.Version != 1 || doc.UpdatedBy != "system" {
		t.Fatalf("unexpected fresh doc: %+v", doc)
	}
	var pricing config.PricingConfig
	if err := json.Unmarshal(doc.Data, &pricing); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if pricing.Currency != "usd" || len(pricing.Plans) != 3 {
		t.Fatalf("expected default pricing, got %+v", pricing)
	}

	again, err := repo.GetOrInitialize(dbc, config.KeyPricing, config.DefaultPricing())
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if again.Version != 1 {
		t.Fatalf("re-read must not bump the version")
	}
}

func TestPatch_MergesFieldsAndBumpsVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewConfigDocRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	doc, err := repo.Patch(dbc, config.KeyProvider, config.DefaultAIProvider(),
		map[string]any{"model": "gpt-4o", "max_tokens": 4096}, "ops@example.com")
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if doc.Version != 2 {
		t.Fatalf("expected version 2, got %d", doc.Version)
	}
	if doc.UpdatedBy != "ops@example.com" {
		t.Fatalf("expected updated_by to be recorded, got %q", doc.UpdatedBy)
	}

	var provider config.AIProviderConfig
	if err := json.Unmarshal(doc.Data, &provider); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if provider.Model != "gpt-4o" || provider.MaxTokens != 4096 {
		t.Fatalf("patched fields missing: %+v", provider)
	}
	// Untouched fields keep their defaults.
	if provider.Provider != "openai" || provider.EmbeddingsModel != "text-embedding-3-small" {
		t.Fatalf("untouched fields changed: %+v", provider)
	}

	doc, err = repo.Patch(dbc, config.KeyProvider, config.DefaultAIProvider(),
		map[string]any{"temperature": 0.7}, "ops@example.com")
	if err != nil {
		t.Fatalf("second patch: %v", err)
	}
	if doc.Version != 3 {
		t.Fatalf("expected version 3, got %d", doc.Version)
	}
}

func TestPatch_RejectsEmptyFieldSet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewConfigDocRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	if _, err := repo.Patch(dbc, config.KeyInsights, config.DefaultInsightsFeatures(), nil, "x"); err == nil {
		t.Fatalf("expected empty patch to fail")
	}
}
