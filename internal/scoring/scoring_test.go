package scoring

import (
	"testing"

	"github.com/guardview/guardview/internal/model"
)

func TestRiskLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  model.RiskLevel
	}{
		{0, model.RiskCritical},
		{39, model.RiskCritical},
		{40, model.RiskHigh},
		{59, model.RiskHigh},
		{60, model.RiskMedium},
		{79, model.RiskMedium},
		{80, model.RiskLow},
		{100, model.RiskLow},
	}
	for _, c := range cases {
		if got := RiskLevelFor(c.score); got != c.want {
			t.Errorf("RiskLevelFor(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestTrustLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  model.TrustLevel
	}{
		{0, model.TrustUntrusted},
		{39, model.TrustUntrusted},
		{40, model.TrustBasic},
		{59, model.TrustBasic},
		{60, model.TrustTrusted},
		{79, model.TrustTrusted},
		{80, model.TrustVerified},
		{100, model.TrustVerified},
	}
	for _, c := range cases {
		if got := TrustLevelFor(c.score); got != c.want {
			t.Errorf("TrustLevelFor(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestRiskLevelMonotonic(t *testing.T) {
	prev := RiskLevelFor(0).Rank()
	for score := 1; score <= 100; score++ {
		cur := RiskLevelFor(score).Rank()
		if cur > prev {
			t.Fatalf("risk rank increased from %d to %d at score %d", prev, cur, score)
		}
		prev = cur
	}
}

func boolp(b bool) *bool      { return &b }
func f64p(f float64) *float64 { return &f }

func TestScoreSessionClean(t *testing.T) {
	sig := &model.Signals{
		FingerprintMatch: boolp(true),
		GeoDistanceKm:    f64p(10),
		AccountAgeDays:   120,
	}
	score, level, stale := ScoreSession(sig, 0)
	if stale {
		t.Fatal("unexpected stale score")
	}
	if score != 100 || level != model.RiskLow {
		t.Fatalf("got score=%d level=%s, want 100/low", score, level)
	}
}

func TestScoreSessionHostile(t *testing.T) {
	sig := &model.Signals{
		FingerprintMatch: boolp(false),
		GeoDistanceKm:    f64p(5000),
		Tor:              true,
		BehaviorAnomaly:  true,
		AccountAgeDays:   1,
	}
	score, level, stale := ScoreSession(sig, 90)
	if stale {
		t.Fatal("unexpected stale score")
	}
	if score >= criticalBelow {
		t.Fatalf("hostile signals scored %d, want critical bucket", score)
	}
	if level != model.RiskCritical {
		t.Fatalf("got level %s, want critical", level)
	}
}

func TestScoreSessionDeterministic(t *testing.T) {
	sig := &model.Signals{
		FingerprintMatch: boolp(true),
		GeoDistanceKm:    f64p(800),
		VPN:              true,
		AccountAgeDays:   45,
	}
	s1, l1, _ := ScoreSession(sig, 0)
	s2, l2, _ := ScoreSession(sig, 0)
	if s1 != s2 || l1 != l2 {
		t.Fatalf("scoring not deterministic: (%d,%s) vs (%d,%s)", s1, l1, s2, l2)
	}
}

func TestScoreSessionMissingSignalsKeepsPrior(t *testing.T) {
	score, level, stale := ScoreSession(nil, 35)
	if !stale {
		t.Fatal("expected stale flag with missing signals")
	}
	if score != 35 {
		t.Fatalf("prior score changed: got %d", score)
	}
	// must not default to a false low risk
	if level != model.RiskCritical {
		t.Fatalf("got level %s, want critical derived from prior", level)
	}

	partial := &model.Signals{FingerprintMatch: boolp(true)}
	score, _, stale = ScoreSession(partial, 72)
	if !stale || score != 72 {
		t.Fatalf("partial signals: got score=%d stale=%v", score, stale)
	}
}

func TestScoreDeviceTrustBuckets(t *testing.T) {
	sig := &model.Signals{
		FingerprintMatch: boolp(true),
		UsageCount:       60,
		AccountAgeDays:   365,
	}
	score, level, stale := ScoreDevice(sig, true, 0)
	if stale {
		t.Fatal("unexpected stale score")
	}
	// 40 + 15 + 25 + 15 + 10 = 105 clamped to 100
	if score != 100 || level != model.TrustVerified {
		t.Fatalf("got score=%d level=%s, want 100/verified", score, level)
	}

	score, level, _ = ScoreDevice(&model.Signals{FingerprintMatch: boolp(false), Tor: true}, false, 0)
	if level != model.TrustUntrusted {
		t.Fatalf("got level %s (score %d), want untrusted", level, score)
	}
}

func TestRescoreDeviceLevelAlwaysMatchesScore(t *testing.T) {
	d := &model.Device{
		IsTrusted: true,
		Signals: &model.Signals{
			FingerprintMatch: boolp(true),
			UsageCount:       12,
			AccountAgeDays:   90,
		},
	}
	RescoreDevice(d)
	if d.TrustLevel != TrustLevelFor(d.TrustScore) {
		t.Fatalf("trustLevel %s does not match bucket of trustScore %d", d.TrustLevel, d.TrustScore)
	}

	// stale path must also keep the pair consistent
	d.Signals = nil
	prior := d.TrustScore
	RescoreDevice(d)
	if !d.StaleScore || d.TrustScore != prior {
		t.Fatalf("stale rescore changed score: %d -> %d", prior, d.TrustScore)
	}
	if d.TrustLevel != TrustLevelFor(d.TrustScore) {
		t.Fatal("trustLevel diverged from trustScore on stale path")
	}
}
