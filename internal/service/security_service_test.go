package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/model"
	"github.com/guardview/guardview/internal/query"
	"github.com/guardview/guardview/internal/remote"
	"github.com/guardview/guardview/internal/selection"
	"github.com/guardview/guardview/internal/store"
)

func newSecurityEnv(t *testing.T) (*SecurityService, *store.Store) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	st := store.New()
	sessionSel := selection.NewTracker()
	deviceSel := selection.NewTracker()
	alertSel := selection.NewTracker()
	log := logger.New("error", "json")
	client := remote.NewClient(remote.Config{BaseURL: srv.URL})
	bulk := NewBulkService(st, client, NewGate(), sessionSel, deviceSel, alertSel, nil, log)
	return NewSecurityService(st, bulk, sessionSel, deviceSel, alertSel, log), st
}

func viewSession(id string, trusted bool, score int) model.Session {
	level := model.RiskLow
	if score < 40 {
		level = model.RiskCritical
	}
	return model.Session{
		ID:            id,
		DeviceName:    "Device " + id,
		DeviceType:    model.DeviceTypeDesktop,
		IPAddress:     "203.0.113.20",
		CreatedAt:     time.Now().Add(-time.Hour),
		LastActivity:  time.Now(),
		IsActive:      true,
		IsTrusted:     trusted,
		SecurityScore: score,
		RiskLevel:     level,
	}
}

func TestSelectAllReplacesSelectionWithVisibleSet(t *testing.T) {
	svc, st := newSecurityEnv(t)
	st.UpsertSession(viewSession("sess_a", true, 90))
	st.UpsertSession(viewSession("sess_b", false, 90))
	st.UpsertSession(viewSession("sess_c", false, 30))

	// a manual pick outside the upcoming filter
	if err := svc.Select(CollectionSessions, "sess_a", true); err != nil {
		t.Fatalf("Select: %v", err)
	}

	trusted := false
	if err := svc.SelectAll(CollectionSessions, query.Filter{IsTrusted: &trusted}, true); err != nil {
		t.Fatalf("SelectAll: %v", err)
	}

	sel, err := svc.Selection(CollectionSessions)
	if err != nil {
		t.Fatalf("Selection: %v", err)
	}
	if len(sel) != 2 || sel[0] != "sess_b" || sel[1] != "sess_c" {
		t.Errorf("selection: got %v, want [sess_b sess_c]", sel)
	}

	if err := svc.SelectAll(CollectionSessions, query.Filter{}, false); err != nil {
		t.Fatalf("SelectAll off: %v", err)
	}
	sel, _ = svc.Selection(CollectionSessions)
	if len(sel) != 0 {
		t.Errorf("deselect-all should clear, got %v", sel)
	}
}

func TestSelectRejectsUnknownIdentifier(t *testing.T) {
	svc, _ := newSecurityEnv(t)

	if err := svc.Select(CollectionSessions, "sess_ghost", true); err == nil {
		t.Error("selecting an unknown identifier should fail")
	}
	// deselecting an unknown identifier is harmless
	if err := svc.Select(CollectionSessions, "sess_ghost", false); err != nil {
		t.Errorf("deselect of unknown identifier: %v", err)
	}
}

func TestSessionViewAppliesFilterAndSort(t *testing.T) {
	svc, st := newSecurityEnv(t)
	st.UpsertSession(viewSession("sess_a", true, 90))
	st.UpsertSession(viewSession("sess_b", false, 30))
	st.UpsertSession(viewSession("sess_c", false, 70))

	out, err := svc.SessionView(query.Filter{}, query.SortSecurityScore, query.Asc)
	if err != nil {
		t.Fatalf("SessionView: %v", err)
	}
	if len(out) != 3 || out[0].ID != "sess_b" || out[2].ID != "sess_a" {
		ids := make([]string, len(out))
		for i, s := range out {
			ids[i] = s.ID
		}
		t.Errorf("sorted view: got %v, want [sess_b sess_c sess_a]", ids)
	}

	if _, err := svc.SessionView(query.Filter{}, query.SortKey("bogus"), query.Asc); err == nil {
		t.Error("invalid sort key should be rejected")
	}
}

func TestSingleIntentsRouteThroughBulkRules(t *testing.T) {
	svc, st := newSecurityEnv(t)
	st.UpsertSession(viewSession("sess_a", false, 90))

	if err := svc.TrustSession(context.Background(), "sess_a", true); err != nil {
		t.Fatalf("TrustSession: %v", err)
	}
	sess, _ := st.Session("sess_a")
	if !sess.IsTrusted {
		t.Error("trust intent should flip the flag")
	}

	if err := svc.TerminateSession(context.Background(), "sess_a", "manual review"); err != nil {
		t.Fatalf("TerminateSession: %v", err)
	}
	if st.HasSession("sess_a") {
		t.Error("terminate intent should remove the session")
	}

	// an absent target counts as already terminated
	if err := svc.TerminateSession(context.Background(), "sess_a", ""); err != nil {
		t.Errorf("repeat terminate should be a no-op, got %v", err)
	}
}

func TestResolveAlertRecordsNote(t *testing.T) {
	svc, st := newSecurityEnv(t)
	st.UpsertAlert(model.SecurityAlert{
		ID:        "alr_a",
		Type:      model.AlertSuspiciousActivity,
		Severity:  model.SeverityHigh,
		Message:   "Unusual sign-in pattern",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	if err := svc.ResolveAlert(context.Background(), "alr_a", "reviewed, known travel"); err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}

	a, _ := st.Alert("alr_a")
	if !a.IsResolved || a.ResolvedAt == nil {
		t.Error("resolve should set IsResolved and ResolvedAt")
	}
	if a.ResolutionNote == nil || *a.ResolutionNote != "reviewed, known travel" {
		t.Error("resolve should record the note")
	}
}

func TestResolveAlertIsTerminal(t *testing.T) {
	svc, st := newSecurityEnv(t)
	resolvedAt := time.Now().Add(-time.Minute)
	note := "confirmed benign"
	st.UpsertAlert(model.SecurityAlert{
		ID:             "alr_a",
		Type:           model.AlertLocationChange,
		Severity:       model.SeverityMedium,
		Message:        "Sign-in from new location",
		IsResolved:     true,
		ResolvedAt:     &resolvedAt,
		ResolutionNote: &note,
		CreatedAt:      time.Now().Add(-time.Hour),
	})

	if err := svc.ResolveAlert(context.Background(), "alr_a", "second note"); err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}

	a, _ := st.Alert("alr_a")
	if a.ResolvedAt == nil || !a.ResolvedAt.Equal(resolvedAt) {
		t.Error("re-resolving must not change the original resolution time")
	}
	if a.ResolutionNote == nil || *a.ResolutionNote != note {
		t.Error("re-resolving must not change the original note")
	}
}
