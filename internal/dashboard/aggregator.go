// Package dashboard derives the security summary from the current session,
// device and alert collections. Nothing here is stored independently; every
// number is recomputed from the collections on each call so no two call
// sites can disagree on a derived value.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/guardview/guardview/internal/model"
	"github.com/guardview/guardview/internal/scoring"
)

// NeutralScore is reported when there are no active sessions to average.
const NeutralScore = 100

// attentionLimit caps how many recommendations are surfaced as requiring
// immediate attention.
const attentionLimit = 3

// Build computes the dashboard aggregate. Recommendations and review
// timestamps come from the remote snapshot; counts and scores come from the
// collections.
func Build(
	sessions []model.Session,
	devices []model.Device,
	alerts []model.SecurityAlert,
	recommendations []model.Recommendation,
	lastReview, nextReview *time.Time,
) model.SecurityDashboard {
	d := model.SecurityDashboard{
		Recommendations:    recommendations,
		RequiresAttention:  attention(recommendations),
		LastSecurityReview: lastReview,
		NextSecurityReview: nextReview,
	}

	scoreSum := 0
	for _, s := range sessions {
		if !s.IsActive {
			continue
		}
		d.ActiveSessions++
		scoreSum += s.SecurityScore
	}
	for _, dev := range devices {
		if dev.IsTrusted {
			d.TrustedDevices++
		}
	}
	for _, a := range alerts {
		if a.IsResolved {
			continue
		}
		switch a.Type {
		case model.AlertSuspiciousActivity:
			d.SuspiciousActivities++
		case model.AlertLocationChange:
			d.LocationAnomalies++
		}
	}

	if d.ActiveSessions == 0 {
		d.OverallSecurityScore = NeutralScore
	} else {
		d.OverallSecurityScore = int(math.Round(float64(scoreSum) / float64(d.ActiveSessions)))
	}
	d.RiskLevel = scoring.RiskLevelFor(d.OverallSecurityScore)

	return d
}

// attention picks the top recommendations requiring immediate attention:
// priority critical and not yet implemented, ordered by priority, then
// severity, then recency.
func attention(recs []model.Recommendation) []model.Recommendation {
	out := make([]model.Recommendation, 0, attentionLimit)
	for _, r := range recs {
		if r.Priority == model.SeverityCritical && !r.IsImplemented {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		if out[i].Severity != out[j].Severity {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > attentionLimit {
		out = out[:attentionLimit]
	}
	return out
}

// OpenAlerts counts alerts that are not yet resolved. Used for trend points.
func OpenAlerts(alerts []model.SecurityAlert) int {
	n := 0
	for _, a := range alerts {
		if !a.IsResolved {
			n++
		}
	}
	return n
}
