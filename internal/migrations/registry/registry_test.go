package registry

import (
	"testing"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/platform/apierr"
)

type stubMigration struct {
	def   Definition
	total int64
	done  int64
}

func (m *stubMigration) Definition() Definition { return m.def }

func (m *stubMigration) Progress(dbctx.Context) (int64, int64, error) {
	return m.total, m.done, nil
}

func (m *stubMigration) Apply(dbctx.Context, *types.User, bool) error { return nil }

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	m := &stubMigration{def: Definition{ID: "dup"}}
	if err := r.Register(m); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(m); err == nil {
		t.Fatalf("expected duplicate register to fail")
	}
}

func TestRegistry_RegisterRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubMigration{}); err == nil {
		t.Fatalf("expected empty id to fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected nil migration to fail")
	}
}

func TestRegistry_GetUnknownIsNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestRegistry_ListIsSortedByID(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(&stubMigration{def: Definition{ID: id}}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	defs := r.List()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, def := range defs {
		if def.ID != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], def.ID)
		}
	}
}
