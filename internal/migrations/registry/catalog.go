package registry

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lumenapp/admin-backend/internal/data/repos"
	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
)

// CatalogConfig carries the knobs the catalog migrations depend on.
type CatalogConfig struct {
	// TargetEmbeddingsVersion is the generation backfill-embeddings converges
	// the population to.
	TargetEmbeddingsVersion int
	// InsightRetention bounds purge-stale-insights; insights older than this
	// are deleted.
	InsightRetention time.Duration
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		TargetEmbeddingsVersion: 2,
		InsightRetention:        180 * 24 * time.Hour,
	}
}

// NewCatalog builds the full migration catalog against the given repos.
func NewCatalog(userRepo repos.UserRepo, cfg CatalogConfig) (*Registry, error) {
	r := NewRegistry()
	all := []Migration{
		&backfillEmbeddings{users: userRepo, target: cfg.TargetEmbeddingsVersion},
		&normalizeEmails{users: userRepo},
		&backfillCircleCounts{users: userRepo},
		&purgeStaleInsights{users: userRepo, retention: cfg.InsightRetention},
	}
	for _, m := range all {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ---- backfill-embeddings ----

type backfillEmbeddings struct {
	users  repos.UserRepo
	target int
}

func (m *backfillEmbeddings) Definition() Definition {
	return Definition{
		ID:               "backfill-embeddings",
		Name:             "Backfill user embeddings",
		Description:      "Regenerates profile embeddings for every user on the current embeddings model generation.",
		Category:         CategoryBackfill,
		Destructive:      false,
		SupportsDryRun:   true,
		SupportsResume:   true,
		DefaultBatchSize: 100,
	}
}

func (m *backfillEmbeddings) Progress(dbc dbctx.Context) (int64, int64, error) {
	total, err := m.users.CountAll(dbc)
	if err != nil {
		return 0, 0, err
	}
	done, err := m.users.CountWhere(dbc, func(q *gorm.DB) *gorm.DB {
		return q.Where("embeddings_version >= ?", m.target)
	})
	if err != nil {
		return 0, 0, err
	}
	return total, done, nil
}

func (m *backfillEmbeddings) Apply(dbc dbctx.Context, u *types.User, dryRun bool) error {
	if u == nil {
		return fmt.Errorf("nil user")
	}
	if u.EmbeddingsVersion >= m.target {
		return nil
	}
	if dryRun {
		return nil
	}
	now := time.Now().UTC()
	return m.users.UpdateFields(dbc, u.ID, map[string]interface{}{
		"embeddings_version":    m.target,
		"embeddings_updated_at": now,
		"updated_at":            now,
	})
}

// ---- normalize-emails ----

type normalizeEmails struct {
	users repos.UserRepo
}

func (m *normalizeEmails) Definition() Definition {
	return Definition{
		ID:               "normalize-emails",
		Name:             "Normalize email addresses",
		Description:      "Lowercases and trims stored email addresses so lookups are case-insensitive.",
		Category:         CategoryCleanup,
		Destructive:      false,
		SupportsDryRun:   true,
		SupportsResume:   true,
		DefaultBatchSize: 500,
	}
}

func (m *normalizeEmails) Progress(dbc dbctx.Context) (int64, int64, error) {
	total, err := m.users.CountAll(dbc)
	if err != nil {
		return 0, 0, err
	}
	done, err := m.users.CountWhere(dbc, func(q *gorm.DB) *gorm.DB {
		return q.Where("email = lower(trim(email))")
	})
	if err != nil {
		return 0, 0, err
	}
	return total, done, nil
}

func (m *normalizeEmails) Apply(dbc dbctx.Context, u *types.User, dryRun bool) error {
	if u == nil {
		return fmt.Errorf("nil user")
	}
	normalized := normalizeEmail(u.Email)
	if normalized == u.Email {
		return nil
	}
	if dryRun {
		return nil
	}
	return m.users.UpdateFields(dbc, u.ID, map[string]interface{}{
		"email":      normalized,
		"updated_at": time.Now().UTC(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---- backfill-circle-counts ----

type backfillCircleCounts struct {
	users repos.UserRepo
}

func (m *backfillCircleCounts) Definition() Definition {
	return Definition{
		ID:               "backfill-circle-counts",
		Name:             "Backfill circle counts",
		Description:      "Recomputes the denormalized circle membership count on each user row.",
		Category:         CategoryBackfill,
		Destructive:      false,
		SupportsDryRun:   true,
		SupportsResume:   true,
		DefaultBatchSize: 200,
	}
}

func (m *backfillCircleCounts) Progress(dbc dbctx.Context) (int64, int64, error) {
	total, err := m.users.CountAll(dbc)
	if err != nil {
		return 0, 0, err
	}
	done, err := m.users.CountWhere(dbc, func(q *gorm.DB) *gorm.DB {
		return q.Where("circle_count_synced_at IS NOT NULL")
	})
	if err != nil {
		return 0, 0, err
	}
	return total, done, nil
}

func (m *backfillCircleCounts) Apply(dbc dbctx.Context, u *types.User, dryRun bool) error {
	if u == nil {
		return fmt.Errorf("nil user")
	}
	if dryRun {
		return nil
	}
	count, err := m.users.CircleCountFor(dbc, u.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return m.users.UpdateFields(dbc, u.ID, map[string]interface{}{
		"circle_count":           count,
		"circle_count_synced_at": now,
		"updated_at":             now,
	})
}

// ---- purge-stale-insights ----

type purgeStaleInsights struct {
	users     repos.UserRepo
	retention time.Duration
}

func (m *purgeStaleInsights) Definition() Definition {
	return Definition{
		ID:               "purge-stale-insights",
		Name:             "Purge stale insights",
		Description:      "Deletes generated insights past the retention window. Destructive; dry-run first.",
		Category:         CategoryCleanup,
		Destructive:      true,
		SupportsDryRun:   true,
		SupportsResume:   false,
		DefaultBatchSize: 100,
	}
}

func (m *purgeStaleInsights) cutoff() time.Time {
	return time.Now().UTC().Add(-m.retention)
}

func (m *purgeStaleInsights) Progress(dbc dbctx.Context) (int64, int64, error) {
	total, err := m.users.CountAll(dbc)
	if err != nil {
		return 0, 0, err
	}
	cutoff := m.cutoff()
	// Done = users with no insight rows past retention.
	pending, err := m.users.CountWhere(dbc, func(q *gorm.DB) *gorm.DB {
		return q.Where("id IN (?)",
			q.Session(&gorm.Session{NewDB: true}).
				Model(&types.Insight{}).
				Select("DISTINCT user_id").
				Where("created_at < ?", cutoff),
		)
	})
	if err != nil {
		return 0, 0, err
	}
	done := total - pending
	if done < 0 {
		done = 0
	}
	return total, done, nil
}

func (m *purgeStaleInsights) Apply(dbc dbctx.Context, u *types.User, dryRun bool) error {
	if u == nil {
		return fmt.Errorf("nil user")
	}
	if dryRun {
		_, err := m.users.CountInsightsBefore(dbc, u.ID, m.cutoff())
		return err
	}
	_, err := m.users.DeleteInsightsBefore(dbc, u.ID, m.cutoff())
	return err
}
