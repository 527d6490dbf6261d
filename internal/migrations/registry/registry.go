package registry

import (
	"fmt"
	"sort"
	"sync"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
)

const (
	CategoryBackfill = "backfill"
	CategoryCleanup  = "cleanup"
	CategorySchema   = "schema"
)

// Definition is the static, immutable description of one migration.
type Definition struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Destructive      bool   `json:"destructive"`
	SupportsDryRun   bool   `json:"supportsDryRun"`
	SupportsResume   bool   `json:"supportsResume"`
	DefaultBatchSize int    `json:"defaultBatchSize"`
}

// Migration couples a definition with its completion predicate and its
// per-user executor. Implementations must keep Progress read-only.
type Migration interface {
	Definition() Definition
	// Progress returns the eligible population size and how many subjects
	// already satisfy the migration's target condition.
	Progress(dbc dbctx.Context) (total int64, done int64, err error)
	// Apply transforms one user. When dryRun is set no data may be written;
	// the runner still counts the user as processed.
	Apply(dbc dbctx.Context, u *types.User, dryRun bool) error
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]Migration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Migration)}
}

func (r *Registry) Register(m Migration) error {
	if m == nil {
		return fmt.Errorf("nil migration")
	}
	def := m.Definition()
	if def.ID == "" {
		return fmt.Errorf("migration Definition().ID is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.ID]; exists {
		return fmt.Errorf("migration already registered for id=%s", def.ID)
	}
	r.entries[def.ID] = m
	return nil
}

func (r *Registry) Get(id string) (Migration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.entries[id]
	if !ok {
		return nil, apierr.NotFound(fmt.Errorf("unknown migration %q", id))
	}
	return m, nil
}

// List returns definitions in stable id order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.entries))
	for _, m := range r.entries {
		out = append(out, m.Definition())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
