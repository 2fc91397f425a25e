package model

import "time"

// AlertType identifies the category of a security alert.
type AlertType string

const (
	AlertSuspiciousActivity AlertType = "suspicious_activity"
	AlertNewDevice          AlertType = "new_device"
	AlertLocationChange     AlertType = "location_change"
	AlertSecurityThreat     AlertType = "security_threat"
	AlertSessionTimeout     AlertType = "session_timeout"
	AlertDeviceCompromise   AlertType = "device_compromise"
	AlertAccountLockout     AlertType = "account_lockout"
	AlertUnusualBehavior    AlertType = "unusual_behavior"
	AlertOther              AlertType = "other"
)

// AlertSeverity grades how serious an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Rank returns a fixed ordering for sorting: low=0 .. critical=3.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// AlertAction names the follow-up a user is expected to take.
type AlertAction string

const (
	ActionVerifyDevice   AlertAction = "verify_device"
	ActionChangePassword AlertAction = "change_password"
	ActionEnable2FA      AlertAction = "enable_2fa"
	ActionContactSupport AlertAction = "contact_support"
	ActionReviewActivity AlertAction = "review_activity"
)

// SecurityAlert represents a security notification. Resolution is terminal:
// once IsResolved is set it is never cleared.
type SecurityAlert struct {
	ID             string        `json:"id"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	IsRead         bool          `json:"isRead"`
	IsResolved     bool          `json:"isResolved"`
	RequiresAction bool          `json:"requiresAction"`
	ActionRequired *AlertAction  `json:"actionRequired,omitempty"`
	ResolutionNote *string       `json:"resolutionNote,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}
