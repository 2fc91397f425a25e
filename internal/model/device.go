package model

import (
	"time"

	"github.com/mileusna/useragent"
)

// TrustLevel is the four-bucket classification derived from a trust score.
type TrustLevel string

const (
	TrustUntrusted TrustLevel = "untrusted"
	TrustBasic     TrustLevel = "basic"
	TrustTrusted   TrustLevel = "trusted"
	TrustVerified  TrustLevel = "verified"
)

// Rank returns a fixed ordering for sorting: untrusted=0 .. verified=3.
func (t TrustLevel) Rank() int {
	switch t {
	case TrustUntrusted:
		return 0
	case TrustBasic:
		return 1
	case TrustTrusted:
		return 2
	case TrustVerified:
		return 3
	}
	return 0
}

// Device represents a client previously or currently used to establish
// sessions. TrustScore, TrustLevel and StaleScore are derived locally;
// TrustLevel is always a pure function of TrustScore.
type Device struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          DeviceType `json:"type"`
	Model         *string    `json:"model,omitempty"`
	OS            *string    `json:"os,omitempty"`
	Browser       *string    `json:"browser,omitempty"`
	UserAgent     *string    `json:"userAgent,omitempty"`
	LastIPAddress string     `json:"lastIpAddress"`
	IsTrusted     bool       `json:"isTrusted"`
	IsActive      bool       `json:"isActive"`
	UsageCount    int        `json:"usageCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUsed      time.Time  `json:"lastUsed"`

	TrustScore int        `json:"trustScore"`
	TrustLevel TrustLevel `json:"trustLevel"`
	StaleScore bool       `json:"staleScore"`

	Signals *Signals `json:"signals,omitempty"`
}

// Normalize fills in browser, OS and type from the raw user agent when the
// remote payload omits them.
func (d *Device) Normalize() {
	if d.LastUsed.Before(d.CreatedAt) {
		d.LastUsed = d.CreatedAt
	}
	if d.UserAgent == nil || *d.UserAgent == "" {
		if d.Type == "" {
			d.Type = DeviceTypeOther
		}
		return
	}

	ua := useragent.Parse(*d.UserAgent)
	if d.Browser == nil && ua.Name != "" {
		name := ua.Name
		d.Browser = &name
	}
	if d.OS == nil && ua.OS != "" {
		os := ua.OS
		d.OS = &os
	}
	if d.Model == nil && ua.Device != "" {
		m := ua.Device
		d.Model = &m
	}
	if d.Type == "" {
		d.Type = deviceTypeFromUA(ua)
	}
}
