package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumenapp/admin-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "seeded",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedUsers creates n users; the first migrated of them carry
// embeddings_version = version to simulate a partially completed backfill.
func SeedUsers(tb testing.TB, ctx context.Context, tx *gorm.DB, n, migrated, version int) []*types.User {
	tb.Helper()
	out := make([]*types.User, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		u := &types.User{
			ID:          uuid.New(),
			Email:       fmt.Sprintf("user%d-%s@example.com", i, uuid.NewString()[:8]),
			DisplayName: fmt.Sprintf("User %d", i),
		}
		if i < migrated {
			u.EmbeddingsVersion = version
			u.EmbeddingsUpdatedAt = &now
		}
		out = append(out, u)
	}
	if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
		tb.Fatalf("seed users: %v", err)
	}
	return out
}

func SeedInsight(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, age time.Duration) *types.Insight {
	tb.Helper()
	in := &types.Insight{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      "mood",
		Body:      "seeded insight",
		CreatedAt: time.Now().UTC().Add(-age),
	}
	if err := tx.WithContext(ctx).Create(in).Error; err != nil {
		tb.Fatalf("seed insight: %v", err)
	}
	return in
}

func SeedRun(tb testing.TB, ctx context.Context, tx *gorm.DB, migrationID, status string, startedAt time.Time) *types.MigrationRun {
	tb.Helper()
	run := &types.MigrationRun{
		ID:          uuid.New(),
		MigrationID: migrationID,
		Status:      status,
		BatchSize:   100,
		StartedAt:   startedAt,
		UpdatedAt:   startedAt,
	}
	if err := tx.WithContext(ctx).Create(run).Error; err != nil {
		tb.Fatalf("seed run: %v", err)
	}
	return run
}
