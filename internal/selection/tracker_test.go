package selection

import (
	"reflect"
	"testing"
)

func TestSelectAndDeselect(t *testing.T) {
	tr := NewTracker()
	tr.Select("a", true)
	tr.Select("b", true)
	tr.Select("a", false)
	if tr.Has("a") || !tr.Has("b") {
		t.Fatalf("unexpected selection: %v", tr.Snapshot())
	}
}

func TestSelectAllReplacesWithVisible(t *testing.T) {
	tr := NewTracker()
	tr.Select("hidden", true)
	tr.SelectAll([]string{"v1", "v2"})
	if got := tr.Snapshot(); !reflect.DeepEqual(got, []string{"v1", "v2"}) {
		t.Fatalf("got %v, want visible set only", got)
	}
}

func TestClearIgnoresFilter(t *testing.T) {
	tr := NewTracker()
	tr.SelectAll([]string{"a", "b", "c"})
	tr.Clear()
	if tr.Count() != 0 {
		t.Fatalf("expected empty selection, got %v", tr.Snapshot())
	}
}

func TestPruneDropsRemoved(t *testing.T) {
	tr := NewTracker()
	tr.SelectAll([]string{"a", "b", "c"})
	tr.Prune([]string{"b", "x"})
	if got := tr.Snapshot(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("got %v, want [a c]", got)
	}
}
