// Package store holds the canonical in-memory collections of sessions,
// devices and alerts. Insertion order is preserved so query results have a
// deterministic tie-break. Readers get copied snapshots; writes come only
// from the reconciliation and bulk-action paths.
package store

import (
	"sync"
	"time"

	"github.com/guardview/guardview/internal/dashboard"
	"github.com/guardview/guardview/internal/model"
)

// DefaultTrendHistory bounds the retained dashboard trend points.
const DefaultTrendHistory = 288

// Store is the single source of truth for entity state.
type Store struct {
	mu sync.RWMutex

	sessions   []model.Session
	sessionIdx map[string]int
	devices    []model.Device
	deviceIdx  map[string]int
	alerts     []model.SecurityAlert
	alertIdx   map[string]int

	recommendations []model.Recommendation
	lastReview      *time.Time
	nextReview      *time.Time

	dash         model.SecurityDashboard
	trends       []model.TrendPoint
	trendHistory int

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sessionIdx:   make(map[string]int),
		deviceIdx:    make(map[string]int),
		alertIdx:     make(map[string]int),
		trendHistory: DefaultTrendHistory,
		now:          time.Now,
	}
}

// SetTrendHistory changes how many trend points are retained. Values below
// one fall back to the default.
func (s *Store) SetTrendHistory(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = DefaultTrendHistory
	}
	s.trendHistory = n
}

// --- read side ---

// Sessions returns a copy of the session collection in insertion order.
func (s *Store) Sessions() []model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Devices returns a copy of the device collection in insertion order.
func (s *Store) Devices() []model.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Alerts returns a copy of the alert collection in insertion order.
func (s *Store) Alerts() []model.SecurityAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SecurityAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Session returns a session by id.
func (s *Store) Session(id string) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.sessionIdx[id]
	if !ok {
		return model.Session{}, false
	}
	return s.sessions[i], true
}

// Device returns a device by id.
func (s *Store) Device(id string) (model.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.deviceIdx[id]
	if !ok {
		return model.Device{}, false
	}
	return s.devices[i], true
}

// Alert returns an alert by id.
func (s *Store) Alert(id string) (model.SecurityAlert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.alertIdx[id]
	if !ok {
		return model.SecurityAlert{}, false
	}
	return s.alerts[i], true
}

// HasSession reports whether a session with the given id exists.
func (s *Store) HasSession(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessionIdx[id]
	return ok
}

// HasDevice reports whether a device with the given id exists.
func (s *Store) HasDevice(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deviceIdx[id]
	return ok
}

// HasAlert reports whether an alert with the given id exists.
func (s *Store) HasAlert(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.alertIdx[id]
	return ok
}

// Dashboard returns the current dashboard aggregate including trends.
func (s *Store) Dashboard() model.SecurityDashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.dash
	d.Trends = make([]model.TrendPoint, len(s.trends))
	copy(d.Trends, s.trends)
	d.Recommendations = make([]model.Recommendation, len(s.dash.Recommendations))
	copy(d.Recommendations, s.dash.Recommendations)
	d.RequiresAttention = make([]model.Recommendation, len(s.dash.RequiresAttention))
	copy(d.RequiresAttention, s.dash.RequiresAttention)
	return d
}

// --- write side (reconciliation and bulk actions only) ---

// UpsertSession updates a session in place or appends it, preserving the
// position of known ids. The dashboard is recomputed before returning.
func (s *Store) UpsertSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.sessionIdx[sess.ID]; ok {
		s.sessions[i] = sess
	} else {
		s.sessionIdx[sess.ID] = len(s.sessions)
		s.sessions = append(s.sessions, sess)
	}
	s.recompute()
}

// UpsertDevice updates a device in place or appends it.
func (s *Store) UpsertDevice(dev model.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.deviceIdx[dev.ID]; ok {
		s.devices[i] = dev
	} else {
		s.deviceIdx[dev.ID] = len(s.devices)
		s.devices = append(s.devices, dev)
	}
	s.recompute()
}

// UpsertAlert updates an alert in place or appends it. Resolution is
// terminal: an incoming unresolved state never clears a local resolved flag.
func (s *Store) UpsertAlert(a model.SecurityAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.alertIdx[a.ID]; ok {
		if s.alerts[i].IsResolved && !a.IsResolved {
			a.IsResolved = true
			a.ResolvedAt = s.alerts[i].ResolvedAt
			a.ResolutionNote = s.alerts[i].ResolutionNote
		}
		s.alerts[i] = a
	} else {
		s.alertIdx[a.ID] = len(s.alerts)
		s.alerts = append(s.alerts, a)
	}
	s.recompute()
}

// RemoveSession deletes a session. Reports whether it existed.
func (s *Store) RemoveSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.sessionIdx[id]
	if !ok {
		return false
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	s.reindexSessions()
	s.recompute()
	return true
}

// RemoveDevice deletes a device. Reports whether it existed.
func (s *Store) RemoveDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.deviceIdx[id]
	if !ok {
		return false
	}
	s.devices = append(s.devices[:i], s.devices[i+1:]...)
	s.reindexDevices()
	s.recompute()
	return true
}

// RemoveAlert deletes an alert. Reports whether it existed.
func (s *Store) RemoveAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.alertIdx[id]
	if !ok {
		return false
	}
	s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
	s.reindexAlerts()
	s.recompute()
	return true
}

// ReplaceSessions merges a full fetch: known ids are updated in place,
// unseen ids are appended in response order, ids absent from the response
// are removed. Returns the removed ids so selections can be pruned.
func (s *Store) ReplaceSessions(in []model.Session) (removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(in))
	for _, sess := range in {
		seen[sess.ID] = struct{}{}
	}

	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if _, ok := seen[sess.ID]; ok {
			kept = append(kept, sess)
		} else {
			removed = append(removed, sess.ID)
		}
	}
	s.sessions = kept
	s.reindexSessions()

	for _, sess := range in {
		if i, ok := s.sessionIdx[sess.ID]; ok {
			s.sessions[i] = sess
		} else {
			s.sessionIdx[sess.ID] = len(s.sessions)
			s.sessions = append(s.sessions, sess)
		}
	}

	s.recompute()
	return removed
}

// ReplaceDevices merges a full device fetch. Semantics match
// ReplaceSessions.
func (s *Store) ReplaceDevices(in []model.Device) (removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(in))
	for _, d := range in {
		seen[d.ID] = struct{}{}
	}

	kept := s.devices[:0]
	for _, d := range s.devices {
		if _, ok := seen[d.ID]; ok {
			kept = append(kept, d)
		} else {
			removed = append(removed, d.ID)
		}
	}
	s.devices = kept
	s.reindexDevices()

	for _, d := range in {
		if i, ok := s.deviceIdx[d.ID]; ok {
			s.devices[i] = d
		} else {
			s.deviceIdx[d.ID] = len(s.devices)
			s.devices = append(s.devices, d)
		}
	}

	s.recompute()
	return removed
}

// ReplaceAlerts merges a full alert fetch. Semantics match ReplaceSessions,
// with the terminal-resolution rule of UpsertAlert.
func (s *Store) ReplaceAlerts(in []model.SecurityAlert) (removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		seen[a.ID] = struct{}{}
	}

	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if _, ok := seen[a.ID]; ok {
			kept = append(kept, a)
		} else {
			removed = append(removed, a.ID)
		}
	}
	s.alerts = kept
	s.reindexAlerts()

	for _, a := range in {
		if i, ok := s.alertIdx[a.ID]; ok {
			if s.alerts[i].IsResolved && !a.IsResolved {
				a.IsResolved = true
				a.ResolvedAt = s.alerts[i].ResolvedAt
				a.ResolutionNote = s.alerts[i].ResolutionNote
			}
			s.alerts[i] = a
		} else {
			s.alertIdx[a.ID] = len(s.alerts)
			s.alerts = append(s.alerts, a)
		}
	}

	s.recompute()
	return removed
}

// SetReviewData stores the recommendation list and review timestamps from
// the remote dashboard snapshot.
func (s *Store) SetReviewData(recs []model.Recommendation, lastReview, nextReview *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations = recs
	s.lastReview = lastReview
	s.nextReview = nextReview
	s.recompute()
}

// SnapshotTrend appends a trend point for the current aggregate. Called once
// per reconciliation pass, not per mutation, to keep the history readable.
func (s *Store) SnapshotTrend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trends = append(s.trends, model.TrendPoint{
		Timestamp:            s.now(),
		OverallSecurityScore: s.dash.OverallSecurityScore,
		ActiveSessions:       s.dash.ActiveSessions,
		OpenAlerts:           dashboard.OpenAlerts(s.alerts),
	})
	if len(s.trends) > s.trendHistory {
		s.trends = s.trends[len(s.trends)-s.trendHistory:]
	}
}

// recompute rebuilds the dashboard aggregate. Caller must hold s.mu.
func (s *Store) recompute() {
	s.dash = dashboard.Build(s.sessions, s.devices, s.alerts, s.recommendations, s.lastReview, s.nextReview)
}

func (s *Store) reindexSessions() {
	s.sessionIdx = make(map[string]int, len(s.sessions))
	for i := range s.sessions {
		s.sessionIdx[s.sessions[i].ID] = i
	}
}

func (s *Store) reindexDevices() {
	s.deviceIdx = make(map[string]int, len(s.devices))
	for i := range s.devices {
		s.deviceIdx[s.devices[i].ID] = i
	}
}

func (s *Store) reindexAlerts() {
	s.alertIdx = make(map[string]int, len(s.alerts))
	for i := range s.alerts {
		s.alertIdx[s.alerts[i].ID] = i
	}
}
