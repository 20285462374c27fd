package dag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnionFind(t *testing.T) {
	t.Parallel()

	uf := NewUnionFind()
	for _, id := range []string{"a", "b", "c", "d"} {
		uf.Add(id)
	}
	if uf.Connected("a", "b") {
		t.Error("a and b should not be connected")
	}

	uf.Union("c", "d")
	uf.Union("a", "d")
	if !uf.Connected("a", "c") {
		t.Error("a and c should be connected transitively")
	}

	want := [][]string{{"a", "c", "d"}, {"b"}}
	if diff := cmp.Diff(want, uf.Components()); diff != "" {
		t.Errorf("Components() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnionFind_AutoAdd(t *testing.T) {
	t.Parallel()
	uf := NewUnionFind()

	if root := uf.Find("x"); root != "x" {
		t.Errorf("Find(x) = %q, want x", root)
	}
	uf.Union("y", "z")
	if !uf.Connected("y", "z") {
		t.Error("y and z should be connected after union")
	}
	if got := len(uf.Components()); got != 2 {
		t.Errorf("len(Components()) = %d, want 2", got)
	}
}

func TestComputeNetworks(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		if got := New().ComputeNetworks(); got != nil {
			t.Errorf("ComputeNetworks() = %v, want nil", got)
		}
	})

	t.Run("partitions and orders", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []string{"solo", "c", "b", "a", "x", "y"},
			[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"x", "y"})

		got := d.ComputeNetworks()
		want := []Network{
			{ID: 0, NodeIDs: []string{"a", "b", "c"}},
			{ID: 1, NodeIDs: []string{"x", "y"}},
			{ID: 2, NodeIDs: []string{"solo"}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ComputeNetworks() mismatch (-want +got):\n%s", diff)
		}
		if n := d.Node("y"); n.Network != 1 {
			t.Errorf("Node(y).Network = %d, want 1", n.Network)
		}
	})

	t.Run("cyclic graph falls back to insertion order", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []string{"b", "a"}, [2]string{"a", "b"}, [2]string{"b", "a"})
		got := d.ComputeNetworks()
		if len(got) != 1 {
			t.Fatalf("got %d networks, want 1", len(got))
		}
		if diff := cmp.Diff([]string{"b", "a"}, got[0].NodeIDs); diff != "" {
			t.Errorf("NodeIDs mismatch (-want +got):\n%s", diff)
		}
	})
}
