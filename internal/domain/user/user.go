package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a subject of data migrations: the mobile app's member population,
// not a console operator.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`

	// Denormalized circle membership count, maintained by backfill-circle-counts.
	CircleCount         int        `gorm:"column:circle_count;not null;default:0" json:"circle_count"`
	CircleCountSyncedAt *time.Time `gorm:"column:circle_count_synced_at" json:"circle_count_synced_at,omitempty"`

	// Embedding generation marker, advanced by backfill-embeddings.
	EmbeddingsVersion   int        `gorm:"column:embeddings_version;not null;default:0;index" json:"embeddings_version"`
	EmbeddingsUpdatedAt *time.Time `gorm:"column:embeddings_updated_at" json:"embeddings_updated_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// CircleMembership is the source of truth behind user.circle_count.
type CircleMembership struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CircleID uuid.UUID `gorm:"type:uuid;not null;index" json:"circle_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CircleMembership) TableName() string { return "circle_membership" }

// Insight is a generated personal-data insight. Rows older than the retention
// window are removed by purge-stale-insights.
type Insight struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind   string    `gorm:"column:kind;not null" json:"kind"`
	Body   string    `gorm:"column:body" json:"body"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Insight) TableName() string { return "insight" }
