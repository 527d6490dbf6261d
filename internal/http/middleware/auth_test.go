package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/admin"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

// fakeAuthService validates exactly one token string and attaches the
// configured identity.
type fakeAuthService struct {
	token string
	rd    *ctxutil.RequestData
}

func (f *fakeAuthService) Login(dbctx.Context, string, string) (string, *types.Admin, error) {
	return "", nil, fmt.Errorf("not implemented")
}

func (f *fakeAuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString != f.token {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	return ctxutil.WithRequestData(ctx, f.rd), nil
}

func (f *fakeAuthService) EnsureBootstrapAdmin(dbctx.Context, string, string) error { return nil }

func (f *fakeAuthService) AccessTTL() time.Duration { return time.Hour }

func newAuthRouter(t *testing.T, svc *fakeAuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	am := NewAuthMiddleware(log, svc)
	r := gin.New()
	protected := r.Group("/", am.RequireAdmin())
	protected.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	protected.POST("/mutate", func(c *gin.Context) { c.String(http.StatusOK, "done") })
	return r
}

func request(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdmin_MissingToken(t *testing.T) {
	r := newAuthRouter(t, &fakeAuthService{token: "good"})
	if w := request(r, http.MethodGet, "/ping", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAdmin_InvalidToken(t *testing.T) {
	r := newAuthRouter(t, &fakeAuthService{token: "good"})
	if w := request(r, http.MethodGet, "/ping", "Bearer bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAdmin_ValidTokenPasses(t *testing.T) {
	svc := &fakeAuthService{token: "good", rd: &ctxutil.RequestData{AdminID: uuid.New(), Role: admin.RoleAdmin}}
	r := newAuthRouter(t, svc)
	if w := request(r, http.MethodGet, "/ping", "Bearer good"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := request(r, http.MethodPost, "/mutate", "Bearer good"); w.Code != http.StatusOK {
		t.Fatalf("admin POST: expected 200, got %d", w.Code)
	}
}

func TestRequireAdmin_QueryTokenForEventSource(t *testing.T) {
	svc := &fakeAuthService{token: "good", rd: &ctxutil.RequestData{AdminID: uuid.New(), Role: admin.RoleAdmin}}
	r := newAuthRouter(t, svc)
	if w := request(r, http.MethodGet, "/ping?token=good", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 via query token, got %d", w.Code)
	}
}

func TestRequireAdmin_ReadonlyCanReadNotWrite(t *testing.T) {
	svc := &fakeAuthService{token: "good", rd: &ctxutil.RequestData{AdminID: uuid.New(), Role: admin.RoleReadOnly}}
	r := newAuthRouter(t, svc)
	if w := request(r, http.MethodGet, "/ping", "Bearer good"); w.Code != http.StatusOK {
		t.Fatalf("readonly GET: expected 200, got %d", w.Code)
	}
	if w := request(r, http.MethodPost, "/mutate", "Bearer good"); w.Code != http.StatusForbidden {
		t.Fatalf("readonly POST: expected 403, got %d", w.Code)
	}
}

func TestRequireAdmin_MissingIdentityIsForbidden(t *testing.T) {
	svc := &fakeAuthService{token: "good", rd: &ctxutil.RequestData{}}
	r := newAuthRouter(t, svc)
	if w := request(r, http.MethodGet, "/ping", "Bearer good"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
