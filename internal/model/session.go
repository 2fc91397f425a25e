package model

import (
	"time"

	"github.com/mileusna/useragent"
)

// DeviceType classifies the client hardware a session or device belongs to.
type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeOther   DeviceType = "other"
)

// RiskLevel is the four-bucket classification derived from a security score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns a fixed ordering for sorting: low=0 .. critical=3.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

// Location is a city-level location, optionally with coordinates.
type Location struct {
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Session represents one authenticated login context as reported by the
// remote system of record. SecurityScore, RiskLevel and StaleScore are
// derived locally and never accepted from the wire.
type Session struct {
	ID           string     `json:"id"`
	DeviceName   string     `json:"deviceName"`
	DeviceType   DeviceType `json:"deviceType"`
	IPAddress    string     `json:"ipAddress"`
	Location     Location   `json:"location"`
	Browser      *string    `json:"browser,omitempty"`
	OS           *string    `json:"os,omitempty"`
	UserAgent    *string    `json:"userAgent,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
	IsActive     bool       `json:"isActive"`
	IsTrusted    bool       `json:"isTrusted"`

	SecurityScore int       `json:"securityScore"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	StaleScore    bool      `json:"staleScore"`

	Signals *Signals `json:"signals,omitempty"`
}

// Normalize fills in browser, OS and device type from the raw user agent
// when the remote payload omits them. lastActivity is clamped to createdAt
// so the invariant lastActivity >= createdAt holds even for sloppy payloads.
func (s *Session) Normalize() {
	if s.LastActivity.Before(s.CreatedAt) {
		s.LastActivity = s.CreatedAt
	}
	if s.UserAgent == nil || *s.UserAgent == "" {
		if s.DeviceType == "" {
			s.DeviceType = DeviceTypeOther
		}
		return
	}

	ua := useragent.Parse(*s.UserAgent)
	if s.Browser == nil && ua.Name != "" {
		name := ua.Name
		s.Browser = &name
	}
	if s.OS == nil && ua.OS != "" {
		os := ua.OS
		s.OS = &os
	}
	if s.DeviceType == "" {
		s.DeviceType = deviceTypeFromUA(ua)
	}
}

func deviceTypeFromUA(ua useragent.UserAgent) DeviceType {
	switch {
	case ua.Mobile:
		return DeviceTypeMobile
	case ua.Tablet:
		return DeviceTypeTablet
	case ua.Desktop:
		return DeviceTypeDesktop
	}
	return DeviceTypeOther
}
