package config

import (
	"time"

	"gorm.io/datatypes"
)

// Well-known singleton document keys.
const (
	KeyPricing  = "pricing"
	KeyProvider = "ai_provider"
	KeyInsights = "insights_features"
)

// ConfigDoc is a versioned singleton configuration document. The typed
// payload lives in Data; Version increments on every write.
type ConfigDoc struct {
	Key       string         `gorm:"primaryKey;column:key" json:"key"`
	Version   int            `gorm:"column:version;not null;default:1" json:"version"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	UpdatedBy string         `gorm:"column:updated_by" json:"updated_by"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"last_updated"`
}

func (ConfigDoc) TableName() string { return "config_doc" }

type PricingPlan struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Interval   string `json:"interval"`
}

type PricingConfig struct {
	Currency string        `json:"currency"`
	Plans    []PricingPlan `json:"plans"`
}

func DefaultPricing() PricingConfig {
	return PricingConfig{
		Currency: "usd",
		Plans: []PricingPlan{
			{ID: "free", Name: "Free", PriceCents: 0, Interval: "month"},
			{ID: "plus", Name: "Plus", PriceCents: 799, Interval: "month"},
			{ID: "plus-annual", Name: "Plus (annual)", PriceCents: 7990, Interval: "year"},
		},
	}
}

type AIProviderConfig struct {
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	EmbeddingsModel   string  `json:"embeddings_model"`
	EmbeddingsVersion int     `json:"embeddings_version"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
}

func DefaultAIProvider() AIProviderConfig {
	return AIProviderConfig{
		Provider:          "openai",
		Model:             "gpt-4o-mini",
		EmbeddingsModel:   "text-embedding-3-small",
		EmbeddingsVersion: 1,
		MaxTokens:         2048,
		Temperature:       0.2,
	}
}

type InsightsFeatureConfig struct {
	Enabled    bool     `json:"enabled"`
	DailyLimit int      `json:"daily_limit"`
	Sections   []string `json:"sections"`
}

func DefaultInsightsFeatures() InsightsFeatureConfig {
	return InsightsFeatureConfig{
		Enabled:    true,
		DailyLimit: 10,
		Sections:   []string{"mood", "sleep", "activity"},
	}
}
