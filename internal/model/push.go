package model

// PushEventType names the push-channel event kinds.
type PushEventType string

const (
	PushSessionUpdate  PushEventType = "session_update"
	PushSecurityAlert  PushEventType = "security_alert"
	PushDeviceUpdate   PushEventType = "device_update"
	PushLocationChange PushEventType = "location_change"
)

// PushEvent is the envelope carried on the push channel. Each event holds
// the full current state of exactly one entity, keyed by its identifier.
// Push events update or insert; they never remove.
type PushEvent struct {
	Type      PushEventType  `json:"type"`
	Session   *Session       `json:"session,omitempty"`
	Device    *Device        `json:"device,omitempty"`
	Alert     *SecurityAlert `json:"alert,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// EntityID returns the identifier of the entity the event refers to.
func (e *PushEvent) EntityID() string {
	switch e.Type {
	case PushSessionUpdate, PushLocationChange:
		if e.Session != nil {
			return e.Session.ID
		}
	case PushDeviceUpdate:
		if e.Device != nil {
			return e.Device.ID
		}
	case PushSecurityAlert:
		if e.Alert != nil {
			return e.Alert.ID
		}
	}
	return ""
}
