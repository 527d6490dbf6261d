package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/services"
)

type fakeMigrationService struct {
	list   *services.MigrationList
	detail *services.MigrationDetail
	status *types.MigrationStatus
	runs   []*types.MigrationRun
	run    *types.MigrationRun
	err    error

	gotOptions types.MigrationOptions
	gotLimit   int
}

func (f *fakeMigrationService) List(dbctx.Context) (*services.MigrationList, error) {
	return f.list, f.err
}

func (f *fakeMigrationService) Get(dbctx.Context, string) (*services.MigrationDetail, error) {
	return f.detail, f.err
}

func (f *fakeMigrationService) Status(dbctx.Context, string) (*types.MigrationStatus, error) {
	return f.status, f.err
}

func (f *fakeMigrationService) ListRuns(_ dbctx.Context, _ string, limit int) ([]*types.MigrationRun, error) {
	f.gotLimit = limit
	return f.runs, f.err
}

func (f *fakeMigrationService) Trigger(_ dbctx.Context, _ string, opts types.MigrationOptions) (*types.MigrationRun, error) {
	f.gotOptions = opts
	return f.run, f.err
}

func (f *fakeMigrationService) Cancel(dbctx.Context, string, uuid.UUID) (*types.MigrationRun, error) {
	return f.run, f.err
}

func newMigrationRouter(svc services.MigrationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMigrationHandler(svc)
	r := gin.New()
	r.GET("/migrations", h.List)
	r.GET("/migrations/:id", h.Get)
	r.GET("/migrations/:id/status", h.Status)
	r.GET("/migrations/:id/runs", h.ListRuns)
	r.POST("/migrations/:id", h.Trigger)
	r.DELETE("/migrations/:id/runs/:runId", h.CancelRun)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListMigrations_OK(t *testing.T) {
	svc := &fakeMigrationService{list: &services.MigrationList{
		Migrations:       []services.MigrationSummary{{RunCount: 3}},
		ActiveMigrations: 1,
		TotalRuns:        7,
	}}
	w := doRequest(t, newMigrationRouter(svc), http.MethodGet, "/migrations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Migrations       []json.RawMessage `json:"migrations"`
		ActiveMigrations *int              `json:"activeMigrations"`
		TotalRuns        *int64            `json:"totalRuns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(body.Migrations))
	}
	if body.ActiveMigrations == nil || *body.ActiveMigrations != 1 {
		t.Fatalf("expected activeMigrations 1, got %v", body.ActiveMigrations)
	}
	if body.TotalRuns == nil || *body.TotalRuns != 7 {
		t.Fatalf("expected totalRuns 7, got %v", body.TotalRuns)
	}
}

func TestTrigger_PassesOptionsAndReturns201(t *testing.T) {
	svc := &fakeMigrationService{run: &types.MigrationRun{ID: uuid.New(), Status: types.RunStatusPending}}
	w := doRequest(t, newMigrationRouter(svc), http.MethodPost, "/migrations/normalize-emails",
		`{"dryRun":true,"batchSize":50}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !svc.gotOptions.DryRun || svc.gotOptions.BatchSize == nil || *svc.gotOptions.BatchSize != 50 {
		t.Fatalf("options not forwarded: %+v", svc.gotOptions)
	}
}

func TestTrigger_EmptyBodyUsesDefaults(t *testing.T) {
	svc := &fakeMigrationService{run: &types.MigrationRun{ID: uuid.New()}}
	w := doRequest(t, newMigrationRouter(svc), http.MethodPost, "/migrations/normalize-emails", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if svc.gotOptions.DryRun || svc.gotOptions.BatchSize != nil {
		t.Fatalf("expected zero options, got %+v", svc.gotOptions)
	}
}

func TestTrigger_ServiceErrorsKeepStatusAndCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierr.NotFound(fmt.Errorf("unknown migration")), http.StatusNotFound, "not_found"},
		{apierr.Conflict(fmt.Errorf("active run exists")), http.StatusConflict, "conflict"},
		{apierr.UnsupportedOption(fmt.Errorf("no dry run")), http.StatusBadRequest, "unsupported_option"},
		{apierr.Upstream(fmt.Errorf("temporal down")), http.StatusBadGateway, "upstream_failure"},
	}
	for _, tc := range cases {
		svc := &fakeMigrationService{err: tc.err}
		w := doRequest(t, newMigrationRouter(svc), http.MethodPost, "/migrations/m", `{}`)
		if w.Code != tc.status {
			t.Fatalf("expected %d, got %d", tc.status, w.Code)
		}
		var body struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if body.Error.Code != tc.code {
			t.Fatalf("expected code %s, got %s", tc.code, body.Error.Code)
		}
		if body.Error.Message == "" {
			t.Fatalf("expected a message in the envelope")
		}
	}
}

func TestCancelRun_RejectsBadRunID(t *testing.T) {
	svc := &fakeMigrationService{}
	w := doRequest(t, newMigrationRouter(svc), http.MethodDelete, "/migrations/m/runs/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListRuns_LimitHandling(t *testing.T) {
	svc := &fakeMigrationService{}
	r := newMigrationRouter(svc)

	if w := doRequest(t, r, http.MethodGet, "/migrations/m/runs", ""); w.Code != http.StatusOK {
		t.Fatalf("default limit: expected 200, got %d", w.Code)
	}
	if svc.gotLimit != defaultRunHistoryLimit {
		t.Fatalf("expected default limit %d, got %d", defaultRunHistoryLimit, svc.gotLimit)
	}

	if w := doRequest(t, r, http.MethodGet, "/migrations/m/runs?limit=5", ""); w.Code != http.StatusOK {
		t.Fatalf("explicit limit: expected 200, got %d", w.Code)
	}
	if svc.gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.gotLimit)
	}

	if w := doRequest(t, r, http.MethodGet, "/migrations/m/runs?limit=500", ""); w.Code != http.StatusOK {
		t.Fatalf("capped limit: expected 200, got %d", w.Code)
	}
	if svc.gotLimit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", svc.gotLimit)
	}

	if w := doRequest(t, r, http.MethodGet, "/migrations/m/runs?limit=0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("zero limit: expected 400, got %d", w.Code)
	}
}
