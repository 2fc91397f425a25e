package service

import (
	"context"
	"fmt"

	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/model"
	"github.com/guardview/guardview/internal/query"
	"github.com/guardview/guardview/internal/selection"
	"github.com/guardview/guardview/internal/store"
)

// SecurityService is the intent-level surface for presentation
// collaborators: read-only snapshots of the filtered views, the selection
// sets and the dashboard, plus single-entity actions. It never exposes
// store mutation directly; all writes go through the bulk path.
type SecurityService struct {
	store      *store.Store
	bulk       *BulkService
	sessionSel *selection.Tracker
	deviceSel  *selection.Tracker
	alertSel   *selection.Tracker
	log        *logger.Logger
}

// NewSecurityService creates a SecurityService.
func NewSecurityService(
	st *store.Store,
	bulk *BulkService,
	sessionSel, deviceSel, alertSel *selection.Tracker,
	log *logger.Logger,
) *SecurityService {
	return &SecurityService{
		store:      st,
		bulk:       bulk,
		sessionSel: sessionSel,
		deviceSel:  deviceSel,
		alertSel:   alertSel,
		log:        log.WithComponent("security_service"),
	}
}

// SessionView returns the filtered, sorted session view.
func (s *SecurityService) SessionView(f query.Filter, key query.SortKey, ord query.Order) ([]model.Session, error) {
	return query.Sessions(s.store.Sessions(), f, key, ord)
}

// DeviceView returns the filtered, sorted device view.
func (s *SecurityService) DeviceView(f query.Filter, key query.SortKey, ord query.Order) ([]model.Device, error) {
	return query.Devices(s.store.Devices(), f, key, ord)
}

// AlertView returns the filtered, sorted alert view.
func (s *SecurityService) AlertView(f query.Filter, key query.SortKey, ord query.Order) ([]model.SecurityAlert, error) {
	return query.Alerts(s.store.Alerts(), f, key, ord)
}

// Dashboard returns the current dashboard aggregate.
func (s *SecurityService) Dashboard() model.SecurityDashboard {
	return s.store.Dashboard()
}

// Selection returns the selected identifiers of a collection.
func (s *SecurityService) Selection(col Collection) ([]string, error) {
	tracker, err := s.trackerFor(col)
	if err != nil {
		return nil, err
	}
	return tracker.Snapshot(), nil
}

// Select toggles a single identifier. Selecting an unknown identifier is
// rejected so a stale client cannot seed the selection with orphans.
func (s *SecurityService) Select(col Collection, id string, on bool) error {
	tracker, err := s.trackerFor(col)
	if err != nil {
		return err
	}
	if on && !s.exists(col, id) {
		return fmt.Errorf("%s: id %q not present", col, id)
	}
	tracker.Select(id, on)
	return nil
}

// SelectAll selects exactly the identifiers visible under the given filter,
// or clears the full selection when on is false.
func (s *SecurityService) SelectAll(col Collection, f query.Filter, on bool) error {
	tracker, err := s.trackerFor(col)
	if err != nil {
		return err
	}
	if !on {
		tracker.Clear()
		return nil
	}

	var visible []string
	switch col {
	case CollectionSessions:
		sessions, err := s.SessionView(f, "", "")
		if err != nil {
			return err
		}
		for _, item := range sessions {
			visible = append(visible, item.ID)
		}
	case CollectionDevices:
		devices, err := s.DeviceView(f, "", "")
		if err != nil {
			return err
		}
		for _, item := range devices {
			visible = append(visible, item.ID)
		}
	case CollectionAlerts:
		alerts, err := s.AlertView(f, "", "")
		if err != nil {
			return err
		}
		for _, item := range alerts {
			visible = append(visible, item.ID)
		}
	}
	tracker.SelectAll(visible)
	return nil
}

// BulkAction runs an action over the current selection of a collection.
func (s *SecurityService) BulkAction(ctx context.Context, col Collection, action Action) (*BatchResult, error) {
	tracker, err := s.trackerFor(col)
	if err != nil {
		return nil, err
	}
	return s.bulk.Run(ctx, col, action, tracker.Snapshot())
}

// TerminateSession ends one session, forwarding the optional reason.
func (s *SecurityService) TerminateSession(ctx context.Context, id, reason string) error {
	return s.bulk.TerminateSessionWithReason(ctx, id, reason)
}

// TrustSession sets the trust flag of one session.
func (s *SecurityService) TrustSession(ctx context.Context, id string, trusted bool) error {
	return s.runOne(ctx, CollectionSessions, trustAction(trusted), id)
}

// TrustDevice sets the trust flag of one device.
func (s *SecurityService) TrustDevice(ctx context.Context, id string, trusted bool) error {
	return s.runOne(ctx, CollectionDevices, trustAction(trusted), id)
}

// RemoveDevice deletes one device registration.
func (s *SecurityService) RemoveDevice(ctx context.Context, id string) error {
	return s.runOne(ctx, CollectionDevices, ActionRemove, id)
}

// MarkAlertRead marks one alert as read.
func (s *SecurityService) MarkAlertRead(ctx context.Context, id string) error {
	return s.runOne(ctx, CollectionAlerts, ActionMarkRead, id)
}

// ResolveAlert resolves one alert, optionally with a note.
func (s *SecurityService) ResolveAlert(ctx context.Context, id, note string) error {
	if a, ok := s.store.Alert(id); ok && a.IsResolved {
		// resolution is terminal, repeating it is a no-op success
		return nil
	}
	return s.bulk.ResolveAlertWithNote(ctx, id, note)
}

// DismissAlert dismisses one alert.
func (s *SecurityService) DismissAlert(ctx context.Context, id string) error {
	return s.runOne(ctx, CollectionAlerts, ActionDismiss, id)
}

// runOne funnels a single-entity intent through the bulk path so the
// sequencing, idempotency and outcome rules apply uniformly.
func (s *SecurityService) runOne(ctx context.Context, col Collection, action Action, id string) error {
	result, err := s.bulk.Run(ctx, col, action, []string{id})
	if err != nil {
		return err
	}
	outcome := result.Outcomes[0]
	if outcome.Status == OutcomeFailure {
		return fmt.Errorf("%s %s %s: %s", action, col, id, outcome.Reason)
	}
	return nil
}

func trustAction(trusted bool) Action {
	if trusted {
		return ActionTrust
	}
	return ActionUntrust
}

func (s *SecurityService) trackerFor(col Collection) (*selection.Tracker, error) {
	switch col {
	case CollectionSessions:
		return s.sessionSel, nil
	case CollectionDevices:
		return s.deviceSel, nil
	case CollectionAlerts:
		return s.alertSel, nil
	}
	return nil, ErrUnknownCollection
}

func (s *SecurityService) exists(col Collection, id string) bool {
	switch col {
	case CollectionSessions:
		return s.store.HasSession(id)
	case CollectionDevices:
		return s.store.HasDevice(id)
	case CollectionAlerts:
		return s.store.HasAlert(id)
	}
	return false
}
