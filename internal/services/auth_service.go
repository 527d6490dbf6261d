package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/admin"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type JWTClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(dbc dbctx.Context, email, password string) (string, *types.Admin, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// EnsureBootstrapAdmin creates the initial operator account from
	// ADMIN_EMAIL/ADMIN_PASSWORD when no account with that email exists.
	EnsureBootstrapAdmin(dbc dbctx.Context, email, password string) error
	AccessTTL() time.Duration
}

type authService struct {
	db        *gorm.DB
	log       *logger.Logger
	admins    repos.AdminRepo
	jwtSecret string
	accessTTL time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, admins repos.AdminRepo, jwtSecret string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &authService{
		db:        db,
		log:       baseLog.With("service", "AuthService"),
		admins:    admins,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

func (s *authService) Login(dbc dbctx.Context, email, password string) (string, *types.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, apierr.Validation(fmt.Errorf("email and password are required"))
	}

	acct, err := s.admins.GetByEmail(dbc, email)
	if err != nil {
		return "", nil, err
	}
	// Same error for unknown account and bad password.
	if acct == nil {
		return "", nil, apierr.New(401, apierr.CodeUnauthorized, fmt.Errorf("invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", nil, apierr.New(401, apierr.CodeUnauthorized, fmt.Errorf("invalid credentials"))
	}

	token, err := s.generateToken(acct)
	if err != nil {
		return "", nil, err
	}
	s.log.Info("admin logged in", "admin_id", acct.ID, "role", acct.Role)
	return token, acct, nil
}

func (s *authService) generateToken(acct *types.Admin) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Email: acct.Email,
		Role:  acct.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid admin id in token: %w", err)
	}
	rd := &ctxutil.RequestData{
		AdminID: adminID,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (s *authService) EnsureBootstrapAdmin(dbc dbctx.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.admins.GetByEmail(dbc, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	acct := &types.Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         admin.RoleAdmin,
	}
	if _, err := s.admins.Create(dbc, acct); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap admin created", "admin_id", acct.ID)
	return nil
}

func (s *authService) AccessTTL() time.Duration {
	return s.accessTTL
}
