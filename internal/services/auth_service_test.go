package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/admin"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type fakeAdminRepo struct {
	byEmail map[string]*types.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{byEmail: map[string]*types.Admin{}}
}

func (r *fakeAdminRepo) Create(_ dbctx.Context, a *types.Admin) (*types.Admin, error) {
	r.byEmail[a.Email] = a
	return a, nil
}

func (r *fakeAdminRepo) GetByEmail(_ dbctx.Context, email string) (*types.Admin, error) {
	return r.byEmail[email], nil
}

func (r *fakeAdminRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Admin, error) {
	for _, a := range r.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func newAuthFixture(t *testing.T) (AuthService, *fakeAdminRepo) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	admins := newFakeAdminRepo()
	return NewAuthService(nil, log, admins, "test-secret", time.Hour), admins
}

func seedAdmin(t *testing.T, admins *fakeAdminRepo, email, password, role string) *types.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	acct := &types.Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	admins.byEmail[email] = acct
	return acct
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, admins := newAuthFixture(t)
	acct := seedAdmin(t, admins, "ops@example.com", "hunter22", admin.RoleAdmin)

	token, got, err := svc.Login(dbctx.Context{Ctx: context.Background()}, "Ops@Example.com ", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("wrong account returned")
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	ctx, err := svc.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		t.Fatalf("expected request data in context")
	}
	if rd.AdminID != acct.ID || rd.Email != acct.Email || rd.Role != admin.RoleAdmin {
		t.Fatalf("unexpected request data: %+v", rd)
	}
}

func TestLogin_SameErrorForUnknownAndWrongPassword(t *testing.T) {
	svc, admins := newAuthFixture(t)
	seedAdmin(t, admins, "ops@example.com", "hunter22", admin.RoleAdmin)
	dbc := dbctx.Context{Ctx: context.Background()}

	_, _, errUnknown := svc.Login(dbc, "nobody@example.com", "hunter22")
	_, _, errWrong := svc.Login(dbc, "ops@example.com", "wrong")

	for _, err := range []error{errUnknown, errWrong} {
		if !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("credential errors must be indistinguishable: %q vs %q", errUnknown, errWrong)
	}
}

func TestLogin_RequiresEmailAndPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, _, err := svc.Login(dbctx.Context{Ctx: context.Background()}, "", "")
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestSetContextFromToken_RejectsTampered(t *testing.T) {
	svc, admins := newAuthFixture(t)
	seedAdmin(t, admins, "ops@example.com", "hunter22", admin.RoleAdmin)
	token, _, err := svc.Login(dbctx.Context{Ctx: context.Background()}, "ops@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := svc.SetContextFromToken(context.Background(), tampered); err == nil {
		t.Fatalf("expected tampered token to fail")
	}
}

func TestEnsureBootstrapAdmin_CreatesOnce(t *testing.T) {
	svc, admins := newAuthFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	if err := svc.EnsureBootstrapAdmin(dbc, "Boot@Example.com", "secretpw"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	acct := admins.byEmail["boot@example.com"]
	if acct == nil {
		t.Fatalf("expected bootstrap admin with normalized email")
	}
	if acct.Role != admin.RoleAdmin {
		t.Fatalf("expected admin role, got %s", acct.Role)
	}
	if strings.Contains(acct.PasswordHash, "secretpw") {
		t.Fatalf("password stored in plain text")
	}

	// Second call is a no-op.
	if err := svc.EnsureBootstrapAdmin(dbc, "boot@example.com", "different"); err != nil {
		t.Fatalf("bootstrap again: %v", err)
	}
	if admins.byEmail["boot@example.com"] != acct {
		t.Fatalf("bootstrap must not replace an existing account")
	}
}
