package configs

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

type ConfigDocRepo interface {
	// GetOrInitialize returns the document for key, materializing the default
	// exactly once when missing. Safe under concurrent first reads: the insert
	// ignores conflicts and the winner's row is re-read.
	GetOrInitialize(dbc dbctx.Context, key string, def any) (*types.ConfigDoc, error)
	// Patch merges field-level updates into the JSON payload and bumps the
	// version. Missing documents are initialized from def first.
	Patch(dbc dbctx.Context, key string, def any, fields map[string]any, updatedBy string) (*types.ConfigDoc, error)
}

type configDocRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfigDocRepo(db *gorm.DB, baseLog *logger.Logger) ConfigDocRepo {
	return &configDocRepo{
		db:  db,
		log: baseLog.With("repo", "ConfigDocRepo"),
	}
}

func (r *configDocRepo) GetOrInitialize(dbc dbctx.Context, key string, def any) (*types.ConfigDoc, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, fmt.Errorf("missing config key")
	}

	var doc types.ConfigDoc
	err := transaction.WithContext(dbc.Ctx).
		Where("key = ?", key).
		Limit(1).
		Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.Key != "" {
		return &doc, nil
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	fresh := types.ConfigDoc{
		Key:       key,
		Version:   1,
		Data:      raw,
		UpdatedBy: "system",
		UpdatedAt: time.Now().UTC(),
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fresh).Error; err != nil {
		return nil, err
	}

	// Re-read: another request may have won the insert race.
	err = transaction.WithContext(dbc.Ctx).
		Where("key = ?", key).
		Limit(1).
		Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.Key == "" {
		return nil, apierr.Upstream(fmt.Errorf("config %s missing after initialize", key))
	}
	return &doc, nil
}

func (r *configDocRepo) Patch(dbc dbctx.Context, key string, def any, fields map[string]any, updatedBy string) (*types.ConfigDoc, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, fmt.Errorf("missing config key")
	}
	if len(fields) == 0 {
		return nil, apierr.Validation(fmt.Errorf("no fields to update"))
	}

	var updated *types.ConfigDoc
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		doc, err := r.GetOrInitialize(inner, key, def)
		if err != nil {
			return err
		}

		var data map[string]any
		if len(doc.Data) > 0 && string(doc.Data) != "null" {
			if err := json.Unmarshal(doc.Data, &data); err != nil {
				return fmt.Errorf("decode config %s: %w", key, err)
			}
		}
		if data == nil {
			data = map[string]any{}
		}
		for k, v := range fields {
			data[k] = v
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := txx.Model(&types.ConfigDoc{}).
			Where("key = ?", key).
			Updates(map[string]interface{}{
				"data":       raw,
				"version":    gorm.Expr("version + 1"),
				"updated_by": updatedBy,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		doc.Data = raw
		doc.Version++
		doc.UpdatedBy = updatedBy
		doc.UpdatedAt = now
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
