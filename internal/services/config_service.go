package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/domain/config"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
	"github.com/lumenapp/admin-backend/internal/platform/ctxutil"
	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

// ConfigView wraps a typed payload with the document's version metadata.
type ConfigView[T any] struct {
	Version     int       `json:"version"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
	Config      T         `json:"config"`
}

type ConfigService interface {
	GetPricing(dbc dbctx.Context) (*ConfigView[types.PricingConfig], error)
	UpdatePricing(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.PricingConfig], error)
	GetAIProvider(dbc dbctx.Context) (*ConfigView[types.AIProviderConfig], error)
	UpdateAIProvider(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.AIProviderConfig], error)
	GetInsightsFeatures(dbc dbctx.Context) (*ConfigView[types.InsightsFeatureConfig], error)
	UpdateInsightsFeatures(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.InsightsFeatureConfig], error)
}

type configService struct {
	db     *gorm.DB
	log    *logger.Logger
	docs   repos.ConfigDocRepo
	notify RunNotifier
}

func NewConfigService(db *gorm.DB, baseLog *logger.Logger, docs repos.ConfigDocRepo, notify RunNotifier) ConfigService {
	return &configService{
		db:     db,
		log:    baseLog.With("service", "ConfigService"),
		docs:   docs,
		notify: notify,
	}
}

// allowedFields guards Patch against key typos and payload injection; only
// the typed structs' JSON fields are patchable.
var allowedFields = map[string]map[string]bool{
	config.KeyPricing: {
		"currency": true,
		"plans":    true,
	},
	config.KeyProvider: {
		"provider":           true,
		"model":              true,
		"embeddings_model":   true,
		"embeddings_version": true,
		"max_tokens":         true,
		"temperature":        true,
	},
	config.KeyInsights: {
		"enabled":     true,
		"daily_limit": true,
		"sections":    true,
	},
}

func (s *configService) GetPricing(dbc dbctx.Context) (*ConfigView[types.PricingConfig], error) {
	return getConfig[types.PricingConfig](s, dbc, config.KeyPricing, config.DefaultPricing())
}

func (s *configService) UpdatePricing(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.PricingConfig], error) {
	return updateConfig[types.PricingConfig](s, dbc, config.KeyPricing, config.DefaultPricing(), fields)
}

func (s *configService) GetAIProvider(dbc dbctx.Context) (*ConfigView[types.AIProviderConfig], error) {
	return getConfig[types.AIProviderConfig](s, dbc, config.KeyProvider, config.DefaultAIProvider())
}

func (s *configService) UpdateAIProvider(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.AIProviderConfig], error) {
	return updateConfig[types.AIProviderConfig](s, dbc, config.KeyProvider, config.DefaultAIProvider(), fields)
}

func (s *configService) GetInsightsFeatures(dbc dbctx.Context) (*ConfigView[types.InsightsFeatureConfig], error) {
	return getConfig[types.InsightsFeatureConfig](s, dbc, config.KeyInsights, config.DefaultInsightsFeatures())
}

func (s *configService) UpdateInsightsFeatures(dbc dbctx.Context, fields map[string]any) (*ConfigView[types.InsightsFeatureConfig], error) {
	return updateConfig[types.InsightsFeatureConfig](s, dbc, config.KeyInsights, config.DefaultInsightsFeatures(), fields)
}

func getConfig[T any](s *configService, dbc dbctx.Context, key string, def T) (*ConfigView[T], error) {
	doc, err := s.docs.GetOrInitialize(dbc, key, def)
	if err != nil {
		return nil, err
	}
	return decodeView[T](doc)
}

func updateConfig[T any](s *configService, dbc dbctx.Context, key string, def T, fields map[string]any) (*ConfigView[T], error) {
	if len(fields) == 0 {
		return nil, apierr.Validation(fmt.Errorf("no fields to update"))
	}
	allowed := allowedFields[key]
	for k := range fields {
		if !allowed[k] {
			return nil, apierr.Validation(fmt.Errorf("unknown field %q for config %s", k, key))
		}
	}

	updatedBy := "system"
	if rd := ctxutil.GetRequestData(dbc.Ctx); rd != nil && rd.Email != "" {
		updatedBy = rd.Email
	}

	doc, err := s.docs.Patch(dbc, key, def, fields, updatedBy)
	if err != nil {
		return nil, err
	}
	view, err := decodeView[T](doc)
	if err != nil {
		return nil, err
	}

	s.log.Info("config updated", "key", key, "version", doc.Version, "fields", len(fields))
	if s.notify != nil {
		s.notify.ConfigChanged(key, doc.Version)
	}
	return view, nil
}

func decodeView[T any](doc *types.ConfigDoc) (*ConfigView[T], error) {
	var cfg T
	if len(doc.Data) > 0 && string(doc.Data) != "null" {
		if err := json.Unmarshal(doc.Data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", doc.Key, err)
		}
	}
	return &ConfigView[T]{
		Version:     doc.Version,
		UpdatedBy:   doc.UpdatedBy,
		LastUpdated: doc.UpdatedAt,
		Config:      cfg,
	}, nil
}
