package registry

import (
	"errors"
	"testing"

	"aviation_incidents/internal/incident"
)

type fakeSource struct {
	tag      incident.Tag
	table    string
	priority int
}

func (f *fakeSource) Tag() incident.Tag                 { return f.tag }
func (f *fakeSource) Table() string                     { return f.table }
func (f *fakeSource) Column(col incident.Column) string { return string(col) }
func (f *fakeSource) Priority() int                     { return f.priority }

func TestAllSortsByPriority(t *testing.T) {
	r := New()
	r.Register(&fakeSource{tag: incident.TagPCI, table: "c", priority: 30})
	r.Register(&fakeSource{tag: incident.TagASN, table: "a", priority: 10})
	r.Register(&fakeSource{tag: incident.TagASRS, table: "b", priority: 20})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].Table() != want {
			t.Errorf("All()[%d].Table() = %q, want %q", i, all[i].Table(), want)
		}
	}
}

func TestRegisterReplacesSameTag(t *testing.T) {
	r := New()
	r.Register(&fakeSource{tag: incident.TagASN, table: "old", priority: 10})
	r.Register(&fakeSource{tag: incident.TagASN, table: "new", priority: 10})

	if r.Len() != 1 {
		t.Fatalf("expected 1 source, got %d", r.Len())
	}
	if all := r.All(); len(all) != 1 || all[0].Table() != "new" {
		t.Errorf("All() = %v, want single source 'new'", all)
	}
}

func TestResolveUnregisteredTag(t *testing.T) {
	r := New()
	r.Register(&fakeSource{tag: incident.TagASN, table: "a"})

	if _, err := r.Resolve("asn_1"); err != nil {
		t.Errorf("Resolve(asn_1) unexpected error: %v", err)
	}
	if _, err := r.Resolve("pci_1"); !errors.Is(err, incident.ErrInvalidUID) {
		t.Errorf("Resolve(pci_1) error = %v, want ErrInvalidUID", err)
	}
}
