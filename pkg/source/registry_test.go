package source

import (
	"reflect"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry([]Source{
		{ID: "mesh", Kind: Orderbook},
		{ID: "pool0", Kind: Pool},
		{ID: "pool1", Kind: Pool},
	})
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name     string
		excluded []string
		want     []ID
	}{
		{
			name: "no exclusions returns all in priority order",
			want: []ID{"mesh", "pool0", "pool1"},
		},
		{
			name:     "single exclusion",
			excluded: []string{"pool0"},
			want:     []ID{"mesh", "pool1"},
		},
		{
			name:     "unknown excluded name is silently ignored",
			excluded: []string{"nope"},
			want:     []ID{"mesh", "pool0", "pool1"},
		},
		{
			name:     "mixed known and unknown",
			excluded: []string{"mesh", "ghost", "pool1"},
			want:     []ID{"pool0"},
		},
		{
			name:     "everything excluded",
			excluded: []string{"mesh", "pool0", "pool1"},
			want:     []ID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRegistry()
			excluded := make(map[string]struct{}, len(tt.excluded))
			for _, e := range tt.excluded {
				excluded[e] = struct{}{}
			}
			got := r.Eligible(excluded)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	r := testRegistry()

	if p := r.Priority("mesh"); p != 0 {
		t.Errorf("mesh priority = %d, want 0", p)
	}
	if p := r.Priority("pool1"); p != 2 {
		t.Errorf("pool1 priority = %d, want 2", p)
	}
	// Unregistered sources rank last.
	if p := r.Priority("ghost"); p != 3 {
		t.Errorf("ghost priority = %d, want 3", p)
	}
}

func TestNewRegistry_DropsDuplicates(t *testing.T) {
	r := NewRegistry([]Source{
		{ID: "mesh", Kind: Orderbook},
		{ID: "mesh", Kind: Pool},
	})
	all := r.All()
	if len(all) != 1 {
		t.Fatalf("registered = %d, want 1", len(all))
	}
	if all[0].Kind != Orderbook {
		t.Error("first registration should win")
	}
}

func TestReload(t *testing.T) {
	r := testRegistry()
	r.Reload([]Source{{ID: "pool9", Kind: Pool}})

	got := r.Eligible(nil)
	if !reflect.DeepEqual(got, []ID{"pool9"}) {
		t.Errorf("after reload Eligible() = %v, want [pool9]", got)
	}
	if _, ok := r.Get("mesh"); ok {
		t.Error("mesh should be gone after reload")
	}
}
