package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumenapp/admin-backend/internal/platform/logger"
)

// Overrides is the operator-editable catalog tuning file. It can disable a
// migration entirely or change its default batch size without a rebuild.
type Overrides struct {
	Migrations map[string]MigrationOverride `yaml:"migrations"`
}

type MigrationOverride struct {
	Disabled         bool `yaml:"disabled"`
	DefaultBatchSize int  `yaml:"defaultBatchSize"`
}

// LoadOverrides reads the YAML file at path. A missing path is not an error;
// the catalog then runs with compiled-in defaults.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}
		return nil, fmt.Errorf("read overrides file %s: %w", path, err)
	}
	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("parse overrides file %s: %w", path, err)
	}
	return &o, nil
}

// ApplyOverrides mutates the registry in place. Unknown ids are logged and
// skipped so a stale overrides file cannot break startup.
func ApplyOverrides(r *Registry, o *Overrides, log *logger.Logger) {
	if o == nil || len(o.Migrations) == 0 {
		return
	}
	for id, ov := range o.Migrations {
		m, err := r.Get(id)
		if err != nil {
			log.Warn("overrides reference unknown migration", "migration_id", id)
			continue
		}
		if ov.Disabled {
			r.remove(id)
			log.Info("migration disabled by overrides", "migration_id", id)
			continue
		}
		if ov.DefaultBatchSize > 0 {
			r.remove(id)
			if err := r.Register(&overriddenMigration{Migration: m, batchSize: ov.DefaultBatchSize}); err != nil {
				log.Error("failed to re-register overridden migration", "migration_id", id, "error", err)
			} else {
				log.Info("migration batch size overridden", "migration_id", id, "batch_size", ov.DefaultBatchSize)
			}
		}
	}
}

// overriddenMigration wraps a catalog entry with a replacement default batch
// size while delegating everything else.
type overriddenMigration struct {
	Migration
	batchSize int
}

func (m *overriddenMigration) Definition() Definition {
	def := m.Migration.Definition()
	def.DefaultBatchSize = m.batchSize
	return def
}
