package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

// Scope narrows a user query; registry entries use scopes to express each
// migration's completion predicate.
type Scope func(*gorm.DB) *gorm.DB

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	CountAll(dbc dbctx.Context) (int64, error)
	CountWhere(dbc dbctx.Context, scope Scope) (int64, error)
	// ListBatchAfter pages the population in stable id order; afterID is the
	// resume cursor (empty means from the start).
	ListBatchAfter(dbc dbctx.Context, afterID string, limit int) ([]*types.User, error)
	CircleCountFor(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error
	DeleteInsightsBefore(dbc dbctx.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	CountInsightsBefore(dbc dbctx.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{
		db:  db,
		log: baseLog.With("repo", "UserRepo"),
	}
}

func (r *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) CountAll(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Count(&count).Error
	return count, err
}

func (r *userRepo) CountWhere(dbc dbctx.Context, scope Scope) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.User{})
	if scope != nil {
		q = scope(q)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *userRepo) ListBatchAfter(dbc dbctx.Context, afterID string, limit int) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Order("id ASC").
		Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.User
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) CircleCountFor(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.CircleMembership{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (r *userRepo) DeleteInsightsBefore(dbc dbctx.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND created_at < ?", userID, cutoff).
		Delete(&types.Insight{})
	return res.RowsAffected, res.Error
}

func (r *userRepo) CountInsightsBefore(dbc dbctx.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Insight{}).
		Where("user_id = ? AND created_at < ?", userID, cutoff).
		Count(&count).Error
	return count, err
}
