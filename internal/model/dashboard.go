package model

import "time"

// Recommendation is a suggested security improvement from the remote system.
type Recommendation struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Priority      AlertSeverity `json:"priority"`
	Severity      AlertSeverity `json:"severity"`
	Effort        string        `json:"effort"`
	Impact        string        `json:"impact"`
	IsImplemented bool          `json:"isImplemented"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// TrendPoint is one historical snapshot of the dashboard aggregate.
type TrendPoint struct {
	Timestamp            time.Time `json:"timestamp"`
	OverallSecurityScore int       `json:"overallSecurityScore"`
	ActiveSessions       int       `json:"activeSessions"`
	OpenAlerts           int       `json:"openAlerts"`
}

// SecurityDashboard is the derived summary over the current session, device
// and alert collections. Counts are always recomputed, never mutated
// independently.
type SecurityDashboard struct {
	OverallSecurityScore int              `json:"overallSecurityScore"`
	RiskLevel            RiskLevel        `json:"riskLevel"`
	ActiveSessions       int              `json:"activeSessions"`
	TrustedDevices       int              `json:"trustedDevices"`
	SuspiciousActivities int              `json:"suspiciousActivities"`
	LocationAnomalies    int              `json:"locationAnomalies"`
	Recommendations      []Recommendation `json:"recommendations"`
	RequiresAttention    []Recommendation `json:"requiresAttention"`
	Trends               []TrendPoint     `json:"trends"`
	LastSecurityReview   *time.Time       `json:"lastSecurityReview,omitempty"`
	NextSecurityReview   *time.Time       `json:"nextSecurityReview,omitempty"`
}
