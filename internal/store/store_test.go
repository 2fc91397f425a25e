package store

import (
	"reflect"
	"testing"

	"github.com/guardview/guardview/internal/model"
)

func sessionIDs(s *Store) []string {
	out := []string{}
	for _, sess := range s.Sessions() {
		out = append(out, sess.ID)
	}
	return out
}

func TestUpsertPreservesInsertionOrder(t *testing.T) {
	s := New()
	s.UpsertSession(model.Session{ID: "a", SecurityScore: 10})
	s.UpsertSession(model.Session{ID: "b", SecurityScore: 20})
	s.UpsertSession(model.Session{ID: "a", SecurityScore: 99})

	if got := sessionIDs(s); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("order changed on update: %v", got)
	}
	sess, ok := s.Session("a")
	if !ok || sess.SecurityScore != 99 {
		t.Fatalf("update not applied: %+v", sess)
	}
}

func TestReplaceSessionsMergeSemantics(t *testing.T) {
	s := New()
	s.UpsertSession(model.Session{ID: "a"})
	s.UpsertSession(model.Session{ID: "b"})
	s.UpsertSession(model.Session{ID: "c"})

	removed := s.ReplaceSessions([]model.Session{
		{ID: "c", DeviceName: "updated"},
		{ID: "a"},
		{ID: "d"},
	})

	if !reflect.DeepEqual(removed, []string{"b"}) {
		t.Fatalf("removed = %v, want [b]", removed)
	}
	// survivors keep their original insertion order, new ids append
	if got := sessionIDs(s); !reflect.DeepEqual(got, []string{"a", "c", "d"}) {
		t.Fatalf("order after merge: %v", got)
	}
	c, _ := s.Session("c")
	if c.DeviceName != "updated" {
		t.Fatal("in-place update lost")
	}
}

func TestDashboardRecomputedOnEveryMutation(t *testing.T) {
	s := New()
	s.UpsertSession(model.Session{ID: "a", IsActive: true, SecurityScore: 80})
	if d := s.Dashboard(); d.ActiveSessions != 1 {
		t.Fatalf("after insert: activeSessions = %d", d.ActiveSessions)
	}

	s.UpsertSession(model.Session{ID: "b", IsActive: true, SecurityScore: 40})
	if d := s.Dashboard(); d.ActiveSessions != 2 || d.OverallSecurityScore != 60 {
		t.Fatalf("after second insert: %+v", d)
	}

	s.RemoveSession("a")
	if d := s.Dashboard(); d.ActiveSessions != 1 || d.OverallSecurityScore != 40 {
		t.Fatalf("after removal: activeSessions=%d overall=%d", d.ActiveSessions, d.OverallSecurityScore)
	}
}

func TestAlertResolutionIsTerminal(t *testing.T) {
	s := New()
	note := "handled"
	s.UpsertAlert(model.SecurityAlert{ID: "x", Type: model.AlertSuspiciousActivity})
	resolved, _ := s.Alert("x")
	resolved.IsResolved = true
	resolved.ResolutionNote = &note
	s.UpsertAlert(resolved)

	// a later push carrying the pre-resolution state must not un-resolve
	s.UpsertAlert(model.SecurityAlert{ID: "x", Type: model.AlertSuspiciousActivity})
	got, _ := s.Alert("x")
	if !got.IsResolved {
		t.Fatal("alert was un-resolved by a stale update")
	}
	if got.ResolutionNote == nil || *got.ResolutionNote != note {
		t.Fatal("resolution note lost")
	}
}

func TestRemoveReindexes(t *testing.T) {
	s := New()
	s.UpsertDevice(model.Device{ID: "d1"})
	s.UpsertDevice(model.Device{ID: "d2"})
	s.UpsertDevice(model.Device{ID: "d3"})
	if !s.RemoveDevice("d2") {
		t.Fatal("expected removal")
	}
	if s.RemoveDevice("d2") {
		t.Fatal("double removal reported success")
	}
	d, ok := s.Device("d3")
	if !ok || d.ID != "d3" {
		t.Fatalf("index stale after removal: %+v ok=%v", d, ok)
	}
}

func TestTrendHistoryBounded(t *testing.T) {
	s := New()
	s.trendHistory = 5
	for i := 0; i < 10; i++ {
		s.SnapshotTrend()
	}
	if d := s.Dashboard(); len(d.Trends) != 5 {
		t.Fatalf("trend history = %d, want 5", len(d.Trends))
	}
}

func TestDashboardSnapshotIsReadOnly(t *testing.T) {
	s := New()
	s.SetReviewData([]model.Recommendation{
		{ID: "rec_a", Title: "Rotate credentials", Priority: model.SeverityCritical, Severity: model.SeverityCritical},
	}, nil, nil)

	d := s.Dashboard()
	if len(d.Recommendations) != 1 || len(d.RequiresAttention) != 1 {
		t.Fatalf("snapshot: %d recommendations, %d attention", len(d.Recommendations), len(d.RequiresAttention))
	}
	d.Recommendations[0].Title = "mutated"
	d.RequiresAttention[0].Title = "mutated"

	fresh := s.Dashboard()
	if fresh.Recommendations[0].Title != "Rotate credentials" {
		t.Errorf("recommendation mutated through snapshot: %q", fresh.Recommendations[0].Title)
	}
	if fresh.RequiresAttention[0].Title != "Rotate credentials" {
		t.Errorf("attention list mutated through snapshot: %q", fresh.RequiresAttention[0].Title)
	}
}
