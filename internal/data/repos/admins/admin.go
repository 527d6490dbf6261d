package admins

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type AdminRepo interface {
	Create(dbc dbctx.Context, a *types.Admin) (*types.Admin, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Admin, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Admin, error)
}

type adminRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminRepo(db *gorm.DB, baseLog *logger.Logger) AdminRepo {
	return &adminRepo{
		db:  db,
		log: baseLog.With("repo", "AdminRepo"),
	}
}

func (r *adminRepo) Create(dbc dbctx.Context, a *types.Admin) (*types.Admin, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *adminRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Admin, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var a types.Admin
	err := transaction.WithContext(dbc.Ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *adminRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Admin, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var a types.Admin
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}
