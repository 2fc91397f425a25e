package model

// Signals are the raw inputs to risk and trust scoring, delivered by the
// remote system alongside each session or device. FingerprintMatch and
// GeoDistanceKm are pointers because their absence means "signal not
// collected", which scoring must treat differently from a zero value.
type Signals struct {
	FingerprintMatch *bool    `json:"fingerprintMatch,omitempty"`
	GeoDistanceKm    *float64 `json:"geoDistanceKm,omitempty"`
	VPN              bool     `json:"vpn"`
	Tor              bool     `json:"tor"`
	BehaviorAnomaly  bool     `json:"behaviorAnomaly"`
	AccountAgeDays   int      `json:"accountAgeDays"`
	UsageCount       int      `json:"usageCount"`
}
