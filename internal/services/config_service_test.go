package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/config"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type fakeConfigDocRepo struct {
	docs map[string]*types.ConfigDoc
}

func newFakeConfigDocRepo() *fakeConfigDocRepo {
	return &fakeConfigDocRepo{docs: map[string]*types.ConfigDoc{}}
}

func (r *fakeConfigDocRepo) GetOrInitialize(_ dbctx.Context, key string, def any) (*types.ConfigDoc, error) {
	if doc, ok := r.docs[key]; ok {
		return doc, nil
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	doc := &types.ConfigDoc{
		Key:       key,
		Version:   1,
		Data:      datatypes.JSON(raw),
		UpdatedAt: time.Now().UTC(),
	}
	r.docs[key] = doc
	return doc, nil
}

func (r *fakeConfigDocRepo) Patch(dbc dbctx.Context, key string, def any, fields map[string]any, updatedBy string) (*types.ConfigDoc, error) {
	doc, err := r.GetOrInitialize(dbc, key, def)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	if err := json.Unmarshal(doc.Data, &merged); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	doc.Data = datatypes.JSON(raw)
	doc.Version++
	doc.UpdatedBy = updatedBy
	doc.UpdatedAt = time.Now().UTC()
	return doc, nil
}

type recordingNotifier struct {
	configKeys     []string
	configVersions []int
}

func (n *recordingNotifier) RunStarted(*types.MigrationRun)                            {}
func (n *recordingNotifier) RunProgress(*types.MigrationRun, types.MigrationRunResult) {}
func (n *recordingNotifier) RunCompleted(*types.MigrationRun)                          {}
func (n *recordingNotifier) RunFailed(*types.MigrationRun, string)                     {}
func (n *recordingNotifier) RunCancelled(*types.MigrationRun)                          {}

func (n *recordingNotifier) ConfigChanged(key string, version int) {
	n.configKeys = append(n.configKeys, key)
	n.configVersions = append(n.configVersions, version)
}

func newConfigFixture(t *testing.T) (ConfigService, *recordingNotifier) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	notify := &recordingNotifier{}
	return NewConfigService(nil, log, newFakeConfigDocRepo(), notify), notify
}

func TestGetPricing_InitializesDefault(t *testing.T) {
	svc, _ := newConfigFixture(t)
	view, err := svc.GetPricing(dbctx.Context{Ctx: context.Background()})
	if err != nil {
		t.Fatalf("get pricing: %v", err)
	}
	if view.Version != 1 {
		t.Fatalf("expected version 1, got %d", view.Version)
	}
	def := config.DefaultPricing()
	if view.Config.Currency != def.Currency || len(view.Config.Plans) != len(def.Plans) {
		t.Fatalf("expected default pricing, got %+v", view.Config)
	}
}

func TestUpdatePricing_BumpsVersionAndNotifies(t *testing.T) {
	svc, notify := newConfigFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	view, err := svc.UpdatePricing(dbc, map[string]any{"currency": "eur"})
	if err != nil {
		t.Fatalf("update pricing: %v", err)
	}
	if view.Version != 2 {
		t.Fatalf("expected version 2, got %d", view.Version)
	}
	if view.Config.Currency != "eur" {
		t.Fatalf("expected currency eur, got %s", view.Config.Currency)
	}
	if len(notify.configKeys) != 1 || notify.configKeys[0] != config.KeyPricing || notify.configVersions[0] != 2 {
		t.Fatalf("expected ConfigChanged(pricing, 2), got %v / %v", notify.configKeys, notify.configVersions)
	}
}

func TestUpdateConfig_RejectsUnknownField(t *testing.T) {
	svc, notify := newConfigFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	_, err := svc.UpdateAIProvider(dbc, map[string]any{"bogus": 1})
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
	_, err = svc.UpdateInsightsFeatures(dbc, map[string]any{})
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation_error on empty patch, got %v", err)
	}
	if len(notify.configKeys) != 0 {
		t.Fatalf("rejected updates must not notify")
	}
}

func TestUpdateConfig_RecordsOperatorEmail(t *testing.T) {
	svc, _ := newConfigFixture(t)
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		AdminID: uuid.New(),
		Email:   "ops@example.com",
	})

	view, err := svc.UpdateInsightsFeatures(dbctx.Context{Ctx: ctx}, map[string]any{"daily_limit": 5})
	if err != nil {
		t.Fatalf("update insights: %v", err)
	}
	if view.UpdatedBy != "ops@example.com" {
		t.Fatalf("expected updatedBy from request data, got %q", view.UpdatedBy)
	}
	if view.Config.DailyLimit != 5 {
		t.Fatalf("expected daily limit 5, got %d", view.Config.DailyLimit)
	}
}
