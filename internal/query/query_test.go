package query

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/guardview/guardview/internal/model"
)

func boolp(b bool) *bool { return &b }

func testSessions() []model.Session {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	chrome := "Chrome"
	firefox := "Firefox"
	return []model.Session{
		{ID: "s1", DeviceName: "Work Laptop", DeviceType: model.DeviceTypeDesktop, IPAddress: "10.0.0.1",
			Location: model.Location{City: "Berlin"}, Browser: &chrome, CreatedAt: base,
			LastActivity: base.Add(time.Hour), IsActive: true, IsTrusted: true,
			SecurityScore: 90, RiskLevel: model.RiskLow},
		{ID: "s2", DeviceName: "Pixel 9", DeviceType: model.DeviceTypeMobile, IPAddress: "10.0.0.2",
			Location: model.Location{City: "Hamburg"}, CreatedAt: base.Add(time.Minute),
			LastActivity: base.Add(2 * time.Hour), IsActive: true,
			SecurityScore: 55, RiskLevel: model.RiskHigh},
		{ID: "s3", DeviceName: "Old iPad", DeviceType: model.DeviceTypeTablet, IPAddress: "192.168.1.9",
			Location: model.Location{City: "Berlin"}, Browser: &firefox, CreatedAt: base.Add(2 * time.Minute),
			LastActivity: base.Add(3 * time.Hour), IsActive: false,
			SecurityScore: 55, RiskLevel: model.RiskHigh},
	}
}

func ids(sessions []model.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}

func TestFilterConjunction(t *testing.T) {
	f := Filter{
		IsActive:  boolp(true),
		RiskLevel: riskp(model.RiskHigh),
	}
	got, err := Sessions(testSessions(), f, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s2"}) {
		t.Fatalf("got %v, want [s2]", ids(got))
	}
}

func riskp(r model.RiskLevel) *model.RiskLevel { return &r }

func TestSearchAcrossFields(t *testing.T) {
	got, err := Sessions(testSessions(), Filter{Search: "berlin"}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s1", "s3"}) {
		t.Fatalf("city search: got %v", ids(got))
	}

	got, err = Sessions(testSessions(), Filter{Search: "FIREFOX"}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s3"}) {
		t.Fatalf("browser search: got %v", ids(got))
	}
}

func TestStableSortTieBreak(t *testing.T) {
	// s2 and s3 share securityScore 55; insertion order must decide.
	got, err := Sessions(testSessions(), Filter{}, SortSecurityScore, Asc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s2", "s3", "s1"}) {
		t.Fatalf("asc: got %v", ids(got))
	}

	// descending inverts comparison only, ties keep insertion order
	got, err = Sessions(testSessions(), Filter{}, SortSecurityScore, Desc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s1", "s2", "s3"}) {
		t.Fatalf("desc: got %v", ids(got))
	}
}

func TestQueryIdempotence(t *testing.T) {
	in := testSessions()
	f := Filter{IsActive: boolp(true)}
	a, err := Sessions(in, f, SortLastActivity, Desc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sessions(in, f, SortLastActivity, Desc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical queries over an unchanged collection differ")
	}
}

func TestQueryDoesNotMutateInput(t *testing.T) {
	in := testSessions()
	want := ids(in)
	if _, err := Sessions(in, Filter{}, SortSecurityScore, Asc); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(in), want) {
		t.Fatalf("input order changed: %v", ids(in))
	}
}

func TestDateRangeInclusive(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	from := base
	to := base.Add(time.Minute)
	got, err := Sessions(testSessions(), Filter{Created: DateRange{From: &from, To: &to}}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"s1", "s2"}) {
		t.Fatalf("got %v, want [s1 s2]", ids(got))
	}
}

func TestValidationRejectedBeforeEvaluation(t *testing.T) {
	_, err := Sessions(testSessions(), Filter{}, SortKey("bogus"), Asc)
	var verr *ValidationError
	if err == nil {
		t.Fatal("expected validation error for bad sort key")
	}
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = Sessions(testSessions(), Filter{Created: DateRange{From: &from, To: &to}}, "", "")
	if err == nil {
		t.Fatal("expected validation error for inverted range")
	}

	_, err = Alerts(nil, Filter{}, SortTrustScore, Asc)
	if err == nil {
		t.Fatal("expected validation error for session key on alerts")
	}
}

func TestDeviceSortByTrustLevel(t *testing.T) {
	devices := []model.Device{
		{ID: "d1", Name: "a", TrustScore: 85, TrustLevel: model.TrustVerified},
		{ID: "d2", Name: "b", TrustScore: 20, TrustLevel: model.TrustUntrusted},
		{ID: "d3", Name: "c", TrustScore: 65, TrustLevel: model.TrustTrusted},
	}
	got, err := Devices(devices, Filter{}, SortTrustLevel, Desc)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != "d1" || got[1].ID != "d3" || got[2].ID != "d2" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestAlertFilterResolvedTriState(t *testing.T) {
	alerts := []model.SecurityAlert{
		{ID: "a1", Type: model.AlertSuspiciousActivity, Severity: model.SeverityHigh, IsResolved: true},
		{ID: "a2", Type: model.AlertLocationChange, Severity: model.SeverityMedium},
	}

	got, err := Alerts(alerts, Filter{}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("unset constraint filtered: got %d alerts", len(got))
	}

	got, err = Alerts(alerts, Filter{IsResolved: boolp(false)}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("got %v", got)
	}
}
