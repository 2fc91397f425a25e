package dashboard

import (
	"testing"
	"time"

	"github.com/guardview/guardview/internal/model"
)

func TestOverallScoreScenario(t *testing.T) {
	// 3 active sessions scoring [90, 55, 35]: overall = round(180/3) = 60,
	// which sits in the medium bucket.
	sessions := []model.Session{
		{ID: "s1", IsActive: true, SecurityScore: 90, RiskLevel: model.RiskLow},
		{ID: "s2", IsActive: true, SecurityScore: 55, RiskLevel: model.RiskHigh},
		{ID: "s3", IsActive: true, SecurityScore: 35, RiskLevel: model.RiskCritical},
	}
	d := Build(sessions, nil, nil, nil, nil, nil)
	if d.OverallSecurityScore != 60 {
		t.Fatalf("overall score = %d, want 60", d.OverallSecurityScore)
	}
	if d.RiskLevel != model.RiskMedium {
		t.Fatalf("dashboard risk = %s, want medium", d.RiskLevel)
	}
	if d.ActiveSessions != 3 {
		t.Fatalf("activeSessions = %d, want 3", d.ActiveSessions)
	}
}

func TestNeutralScoreWithoutActiveSessions(t *testing.T) {
	sessions := []model.Session{{ID: "s1", IsActive: false, SecurityScore: 10}}
	d := Build(sessions, nil, nil, nil, nil, nil)
	if d.OverallSecurityScore != NeutralScore {
		t.Fatalf("overall score = %d, want neutral %d", d.OverallSecurityScore, NeutralScore)
	}
	if d.ActiveSessions != 0 {
		t.Fatalf("activeSessions = %d, want 0", d.ActiveSessions)
	}
}

func TestAlertCountsSkipResolved(t *testing.T) {
	alerts := []model.SecurityAlert{
		{ID: "a1", Type: model.AlertSuspiciousActivity},
		{ID: "a2", Type: model.AlertSuspiciousActivity, IsResolved: true},
		{ID: "a3", Type: model.AlertLocationChange},
		{ID: "a4", Type: model.AlertNewDevice},
	}
	d := Build(nil, nil, alerts, nil, nil, nil)
	if d.SuspiciousActivities != 1 {
		t.Fatalf("suspiciousActivities = %d, want 1", d.SuspiciousActivities)
	}
	if d.LocationAnomalies != 1 {
		t.Fatalf("locationAnomalies = %d, want 1", d.LocationAnomalies)
	}
}

func TestTrustedDeviceCount(t *testing.T) {
	devices := []model.Device{
		{ID: "d1", IsTrusted: true},
		{ID: "d2"},
		{ID: "d3", IsTrusted: true},
	}
	d := Build(nil, devices, nil, nil, nil, nil)
	if d.TrustedDevices != 2 {
		t.Fatalf("trustedDevices = %d, want 2", d.TrustedDevices)
	}
}

func TestAttentionTopThree(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	recs := []model.Recommendation{
		{ID: "r1", Priority: model.SeverityCritical, Severity: model.SeverityMedium, CreatedAt: base},
		{ID: "r2", Priority: model.SeverityHigh, Severity: model.SeverityCritical, CreatedAt: base},
		{ID: "r3", Priority: model.SeverityCritical, Severity: model.SeverityCritical, CreatedAt: base},
		{ID: "r4", Priority: model.SeverityCritical, Severity: model.SeverityCritical, CreatedAt: base.Add(time.Hour)},
		{ID: "r5", Priority: model.SeverityCritical, Severity: model.SeverityLow, CreatedAt: base, IsImplemented: true},
		{ID: "r6", Priority: model.SeverityCritical, Severity: model.SeverityHigh, CreatedAt: base},
	}
	d := Build(nil, nil, nil, recs, nil, nil)
	if len(d.RequiresAttention) != 3 {
		t.Fatalf("got %d attention items, want 3", len(d.RequiresAttention))
	}
	// critical+unimplemented only, severity then recency: r4 (newer) before r3, then r6
	want := []string{"r4", "r3", "r6"}
	for i, w := range want {
		if d.RequiresAttention[i].ID != w {
			t.Fatalf("attention[%d] = %s, want %s", i, d.RequiresAttention[i].ID, w)
		}
	}
}
