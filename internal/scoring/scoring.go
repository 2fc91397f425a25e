// Package scoring turns raw session and device signals into security and
// trust scores. All functions are pure and deterministic: identical signals
// always yield identical output, so rescoring on every reconciliation pass
// is safe.
package scoring

import "github.com/guardview/guardview/internal/model"

// Threshold boundaries. The lower boundary is inclusive of the lower bucket:
// a score of 39 is critical, 40 is high, 79 is medium, 80 is low.
const (
	criticalBelow = 40
	highBelow     = 60
	mediumBelow   = 80
)

// Penalty and bonus weights for the additive scoring model.
const (
	penaltyFingerprintMismatch = 25
	penaltyGeoFar              = 15
	penaltyGeoVeryFar          = 25
	penaltyVPN                 = 10
	penaltyTor                 = 30
	penaltyBehaviorAnomaly     = 20
	penaltyYoungAccount        = 5

	geoFarKm     = 500
	geoVeryFarKm = 2000

	deviceBase         = 40
	bonusFingerprint   = 15
	bonusUserTrusted   = 25
	bonusHeavyUse      = 15
	bonusRegularUse    = 10
	bonusOccasionalUse = 5
	bonusMatureAccount = 10
	penaltyDeviceTor   = 25
	penaltyDeviceVPN   = 10
	youngAccountDays   = 7
	matureAccountDays  = 30
	heavyUseCount      = 50
	regularUseCount    = 10
	occasionalUseCount = 3
)

// RiskLevelFor maps a security score to its risk bucket.
func RiskLevelFor(score int) model.RiskLevel {
	switch {
	case score < criticalBelow:
		return model.RiskCritical
	case score < highBelow:
		return model.RiskHigh
	case score < mediumBelow:
		return model.RiskMedium
	}
	return model.RiskLow
}

// TrustLevelFor maps a trust score to its trust bucket.
func TrustLevelFor(score int) model.TrustLevel {
	switch {
	case score < criticalBelow:
		return model.TrustUntrusted
	case score < highBelow:
		return model.TrustBasic
	case score < mediumBelow:
		return model.TrustTrusted
	}
	return model.TrustVerified
}

// ScoreSession computes a session's security score from its signals.
// When required signals are missing it fails soft: the prior score is kept
// unchanged and stale is true. It never defaults to a false "low risk".
func ScoreSession(sig *model.Signals, prior int) (score int, level model.RiskLevel, stale bool) {
	if sig == nil || sig.FingerprintMatch == nil || sig.GeoDistanceKm == nil {
		return prior, RiskLevelFor(prior), true
	}

	score = 100
	if !*sig.FingerprintMatch {
		score -= penaltyFingerprintMismatch
	}
	switch d := *sig.GeoDistanceKm; {
	case d > geoVeryFarKm:
		score -= penaltyGeoVeryFar
	case d > geoFarKm:
		score -= penaltyGeoFar
	}
	if sig.Tor {
		score -= penaltyTor
	} else if sig.VPN {
		score -= penaltyVPN
	}
	if sig.BehaviorAnomaly {
		score -= penaltyBehaviorAnomaly
	}
	if sig.AccountAgeDays < youngAccountDays {
		score -= penaltyYoungAccount
	}

	score = clamp(score)
	return score, RiskLevelFor(score), false
}

// ScoreDevice computes a device's trust score from its signals and the
// user's explicit trust flag. Missing signals fail soft the same way as
// ScoreSession.
func ScoreDevice(sig *model.Signals, trusted bool, prior int) (score int, level model.TrustLevel, stale bool) {
	if sig == nil || sig.FingerprintMatch == nil {
		return prior, TrustLevelFor(prior), true
	}

	score = deviceBase
	if *sig.FingerprintMatch {
		score += bonusFingerprint
	}
	if trusted {
		score += bonusUserTrusted
	}
	switch {
	case sig.UsageCount >= heavyUseCount:
		score += bonusHeavyUse
	case sig.UsageCount >= regularUseCount:
		score += bonusRegularUse
	case sig.UsageCount >= occasionalUseCount:
		score += bonusOccasionalUse
	}
	if sig.AccountAgeDays >= matureAccountDays {
		score += bonusMatureAccount
	}
	if sig.BehaviorAnomaly {
		score -= penaltyBehaviorAnomaly
	}
	if sig.Tor {
		score -= penaltyDeviceTor
	} else if sig.VPN {
		score -= penaltyDeviceVPN
	}

	score = clamp(score)
	return score, TrustLevelFor(score), false
}

// Rescore recomputes a session's derived fields in place.
func Rescore(s *model.Session) {
	s.SecurityScore, s.RiskLevel, s.StaleScore = ScoreSession(s.Signals, s.SecurityScore)
}

// RescoreDevice recomputes a device's derived fields in place. TrustLevel is
// only ever set here, as a function of TrustScore.
func RescoreDevice(d *model.Device) {
	d.TrustScore, d.TrustLevel, d.StaleScore = ScoreDevice(d.Signals, d.IsTrusted, d.TrustScore)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
