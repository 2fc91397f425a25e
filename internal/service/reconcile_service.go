package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/guardview/guardview/internal/database"
	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/metrics"
	"github.com/guardview/guardview/internal/model"
	"github.com/guardview/guardview/internal/remote"
	"github.com/guardview/guardview/internal/scoring"
	"github.com/guardview/guardview/internal/selection"
	"github.com/guardview/guardview/internal/store"
)

// State is the reconciliation state machine position.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateReconciled State = "reconciled"
)

// ErrFetchInFlight is returned when a fetch is requested while another one
// is still running. The caller should not queue a second fetch.
var ErrFetchInFlight = errors.New("fetch already in flight")

// dashboardCacheKey is where the last-known-good dashboard snapshot is
// cached in Redis for presenters that restart before the first fetch.
const dashboardCacheKey = "guardview:dashboard:lastgood"

// ReconcileService merges full fetches and push-channel events into the
// canonical store. All mutations run under the shared Gate, one at a time.
type ReconcileService struct {
	store      *store.Store
	client     *remote.Client
	rdb        *database.Redis
	gate       *Gate
	sessionSel *selection.Tracker
	deviceSel  *selection.Tracker
	alertSel   *selection.Tracker
	met        *metrics.Metrics
	log        *logger.Logger

	fetching atomic.Bool
	state    atomic.Value // State

	pushChannel       string
	dashboardCacheTTL time.Duration
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(
	st *store.Store,
	client *remote.Client,
	rdb *database.Redis,
	gate *Gate,
	sessionSel, deviceSel, alertSel *selection.Tracker,
	met *metrics.Metrics,
	pushChannel string,
	dashboardCacheTTL time.Duration,
	log *logger.Logger,
) *ReconcileService {
	s := &ReconcileService{
		store:             st,
		client:            client,
		rdb:               rdb,
		gate:              gate,
		sessionSel:        sessionSel,
		deviceSel:         deviceSel,
		alertSel:          alertSel,
		met:               met,
		pushChannel:       pushChannel,
		dashboardCacheTTL: dashboardCacheTTL,
		log:               log.WithComponent("reconcile_service"),
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the current reconciliation state.
func (s *ReconcileService) State() State {
	return s.state.Load().(State)
}

// Fetch runs one full reconciliation pass: fetch all collections, merge by
// identifier, rescore, prune selections, recompute the dashboard and append
// a trend point. A fetch failure leaves the last-known-good state untouched.
func (s *ReconcileService) Fetch(ctx context.Context) error {
	if !s.fetching.CompareAndSwap(false, true) {
		return ErrFetchInFlight
	}
	defer s.fetching.Store(false)

	s.gate.Lock()
	defer s.gate.Unlock()

	prev := s.State()
	s.state.Store(StateFetching)
	start := time.Now()

	sessions, err := s.client.FetchSessions(ctx)
	if err != nil {
		return s.fetchFailed(prev, "sessions", err)
	}
	devices, err := s.client.FetchDevices(ctx)
	if err != nil {
		return s.fetchFailed(prev, "devices", err)
	}
	alerts, err := s.client.FetchAlerts(ctx)
	if err != nil {
		return s.fetchFailed(prev, "alerts", err)
	}
	snap, err := s.client.FetchDashboard(ctx)
	if err != nil {
		return s.fetchFailed(prev, "dashboard", err)
	}

	if s.met != nil {
		s.met.FetchDuration.Observe(time.Since(start).Seconds())
	}

	// the store holds the prior known score; the wire payload's score field
	// is untrusted and may be absent entirely
	for i := range sessions {
		sessions[i].Normalize()
		if known, ok := s.store.Session(sessions[i].ID); ok {
			sessions[i].SecurityScore = known.SecurityScore
		}
		scoring.Rescore(&sessions[i])
	}
	for i := range devices {
		devices[i].Normalize()
		if known, ok := s.store.Device(devices[i].ID); ok {
			devices[i].TrustScore = known.TrustScore
		}
		scoring.RescoreDevice(&devices[i])
	}

	removedSessions := s.store.ReplaceSessions(sessions)
	removedDevices := s.store.ReplaceDevices(devices)
	removedAlerts := s.store.ReplaceAlerts(alerts)
	s.store.SetReviewData(snap.Recommendations, snap.LastSecurityReview, snap.NextSecurityReview)

	s.sessionSel.Prune(removedSessions)
	s.deviceSel.Prune(removedDevices)
	s.alertSel.Prune(removedAlerts)

	s.raiseLocalAlerts(sessions)

	s.store.SnapshotTrend()
	s.state.Store(StateReconciled)
	s.cacheDashboard(ctx)
	s.observeCounts()

	if s.met != nil {
		s.met.ReconcilePasses.Inc()
	}
	s.log.Debug().
		Int("sessions", len(sessions)).
		Int("devices", len(devices)).
		Int("alerts", len(alerts)).
		Int("removed", len(removedSessions)+len(removedDevices)+len(removedAlerts)).
		Msg("reconciliation pass complete")

	return nil
}

func (s *ReconcileService) fetchFailed(prev State, what string, err error) error {
	// last-known-good state stays untouched and so does readiness: once a
	// pass has reconciled, a failed refresh does not flip us back to idle
	s.state.Store(prev)
	if s.met != nil {
		s.met.ReconcileFailures.Inc()
	}
	s.log.Warn().Err(err).Str("collection", what).Msg("fetch failed, keeping last-known-good state")
	return err
}

// ApplyPush merges one push event. It blocks while a fetch or bulk batch
// holds the gate, so events received mid-fetch apply right after the merge,
// in receipt order. Push events never remove entities.
func (s *ReconcileService) ApplyPush(ev model.PushEvent) {
	if ev.EntityID() == "" {
		if s.met != nil {
			s.met.PushEventsDropped.Inc()
		}
		s.log.Warn().Str("type", string(ev.Type)).Msg("dropping push event without entity payload")
		return
	}

	s.gate.Lock()
	defer s.gate.Unlock()

	switch ev.Type {
	case model.PushSessionUpdate, model.PushLocationChange:
		sess := *ev.Session
		sess.Normalize()
		if known, ok := s.store.Session(sess.ID); ok {
			sess.SecurityScore = known.SecurityScore
		}
		scoring.Rescore(&sess)
		s.store.UpsertSession(sess)
		s.raiseLocalAlerts([]model.Session{sess})
	case model.PushDeviceUpdate:
		dev := *ev.Device
		dev.Normalize()
		if known, ok := s.store.Device(dev.ID); ok {
			dev.TrustScore = known.TrustScore
		}
		scoring.RescoreDevice(&dev)
		s.store.UpsertDevice(dev)
	case model.PushSecurityAlert:
		s.store.UpsertAlert(*ev.Alert)
	default:
		if s.met != nil {
			s.met.PushEventsDropped.Inc()
		}
		s.log.Warn().Str("type", string(ev.Type)).Msg("dropping push event of unknown type")
		return
	}

	if s.met != nil {
		s.met.PushEventsApplied.WithLabelValues(string(ev.Type)).Inc()
	}
	s.observeCounts()
	s.log.Debug().Str("type", string(ev.Type)).Str("entity_id", ev.EntityID()).Msg("push event applied")
}

// raiseLocalAlerts creates a local suspicious-activity alert for sessions
// whose risk just became critical, if none is already open. Caller must
// hold the gate.
func (s *ReconcileService) raiseLocalAlerts(sessions []model.Session) {
	for _, sess := range sessions {
		if sess.RiskLevel != model.RiskCritical || sess.StaleScore || !sess.IsActive {
			continue
		}
		if s.hasOpenCriticalAlert() {
			return
		}
		action := model.ActionReviewActivity
		alert := model.SecurityAlert{
			ID:             generateID("lcl"),
			Type:           model.AlertSuspiciousActivity,
			Severity:       model.SeverityCritical,
			Message:        "Session " + sess.ID + " on " + sess.DeviceName + " scored critical risk",
			RequiresAction: true,
			ActionRequired: &action,
			CreatedAt:      time.Now(),
		}
		s.store.UpsertAlert(alert)
		s.log.Info().Str("session_id", sess.ID).Str("alert_id", alert.ID).Msg("raised local critical-risk alert")
	}
}

func (s *ReconcileService) hasOpenCriticalAlert() bool {
	for _, a := range s.store.Alerts() {
		if a.Type == model.AlertSuspiciousActivity && a.Severity == model.SeverityCritical && !a.IsResolved {
			return true
		}
	}
	return false
}

// StartPolling fetches on a fixed interval until ctx is canceled. Ticks
// that land while a fetch is still in flight are skipped, not queued.
func (s *ReconcileService) StartPolling(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Fetch(ctx); err != nil {
					if errors.Is(err, ErrFetchInFlight) {
						if s.met != nil {
							s.met.ReconcileSkipped.Inc()
						}
						continue
					}
					s.log.Warn().Err(err).Msg("scheduled fetch failed")
				}
			}
		}
	}()
}

// StartPushSubscriber consumes the Redis push channel until ctx is
// canceled. A single consumer goroutine preserves receipt order. Malformed
// payloads are logged and dropped, never fatal.
func (s *ReconcileService) StartPushSubscriber(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, s.pushChannel)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := DecodePushEvent([]byte(msg.Payload))
				if err != nil {
					if s.met != nil {
						s.met.PushEventsDropped.Inc()
					}
					s.log.Warn().Err(err).Msg("dropping malformed push payload")
					continue
				}
				s.ApplyPush(ev)
			}
		}
	}()
}

// DecodePushEvent parses a push-channel payload.
func DecodePushEvent(payload []byte) (model.PushEvent, error) {
	var ev model.PushEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.PushEvent{}, err
	}
	return ev, nil
}

// cacheDashboard writes the aggregate to Redis so presenters can show
// last-known-good data immediately after a restart. Best effort.
func (s *ReconcileService) cacheDashboard(ctx context.Context) {
	if s.rdb == nil || s.dashboardCacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(s.store.Dashboard())
	if err != nil {
		return
	}
	if err := s.rdb.SetWithTTL(ctx, dashboardCacheKey, data, s.dashboardCacheTTL); err != nil {
		s.log.Debug().Err(err).Msg("failed to cache dashboard snapshot")
	}
}

func (s *ReconcileService) observeCounts() {
	if s.met == nil {
		return
	}
	s.met.EntitiesTracked.WithLabelValues("sessions").Set(float64(len(s.store.Sessions())))
	s.met.EntitiesTracked.WithLabelValues("devices").Set(float64(len(s.store.Devices())))
	s.met.EntitiesTracked.WithLabelValues("alerts").Set(float64(len(s.store.Alerts())))
}
