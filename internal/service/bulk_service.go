package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guardview/guardview/internal/logger"
	"github.com/guardview/guardview/internal/metrics"
	"github.com/guardview/guardview/internal/remote"
	"github.com/guardview/guardview/internal/scoring"
	"github.com/guardview/guardview/internal/selection"
	"github.com/guardview/guardview/internal/store"
)

// Action names a bulk-capable operation.
type Action string

const (
	ActionTerminate Action = "terminate"
	ActionTrust     Action = "trust"
	ActionUntrust   Action = "untrust"
	ActionRemove    Action = "remove"
	ActionResolve   Action = "resolve"
	ActionDismiss   Action = "dismiss"
	ActionMarkRead  Action = "mark_read"
)

// ErrUnsupportedAction is returned when the action does not apply to the
// target collection.
var ErrUnsupportedAction = errors.New("action not supported for collection")

// OutcomeStatus is the per-item result of a bulk action.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome records what happened to one identifier.
type Outcome struct {
	ID     string        `json:"id"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Batch status values.
const (
	BatchCompleted = "completed"
	BatchPartial   = "partial"
)

// BatchResult is the full accounting of one bulk action: exactly one
// outcome per submitted identifier, in submission order.
type BatchResult struct {
	BatchID    string    `json:"batchId"`
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	Status     string    `json:"status"`
	Outcomes   []Outcome `json:"outcomes"`
	Failed     []string  `json:"failed,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// BulkService applies an action to many identifiers against the remote
// system. Calls are strictly sequential, a deliberate backpressure choice:
// it bounds load on the remote system and makes the result independent of
// network timing.
type BulkService struct {
	store      *store.Store
	client     *remote.Client
	gate       *Gate
	sessionSel *selection.Tracker
	deviceSel  *selection.Tracker
	alertSel   *selection.Tracker
	met        *metrics.Metrics
	log        *logger.Logger
}

// NewBulkService creates a BulkService.
func NewBulkService(
	st *store.Store,
	client *remote.Client,
	gate *Gate,
	sessionSel, deviceSel, alertSel *selection.Tracker,
	met *metrics.Metrics,
	log *logger.Logger,
) *BulkService {
	return &BulkService{
		store:      st,
		client:     client,
		gate:       gate,
		sessionSel: sessionSel,
		deviceSel:  deviceSel,
		alertSel:   alertSel,
		met:        met,
		log:        log.WithComponent("bulk_service"),
	}
}

// Run applies the action to every identifier, never aborting on a failure.
// It returns exactly len(ids) outcomes. Afterwards the selection tracker
// holds exactly the failed and skipped identifiers, so the user can retry
// without re-selecting. The gate is held for the whole batch: a
// reconciliation arriving mid-batch waits and applies afterwards.
func (b *BulkService) Run(ctx context.Context, col Collection, action Action, ids []string) (*BatchResult, error) {
	if err := validateAction(col, action); err != nil {
		return nil, err
	}

	b.gate.Lock()
	defer b.gate.Unlock()

	result := &BatchResult{
		BatchID:    generateID("bat"),
		Collection: string(col),
		Action:     action,
		Outcomes:   make([]Outcome, 0, len(ids)),
		StartedAt:  time.Now(),
	}

	tracker := b.trackerFor(col)
	var succeeded []string

	for _, id := range ids {
		outcome := b.applyOne(ctx, col, action, id)
		result.Outcomes = append(result.Outcomes, outcome)
		if b.met != nil {
			b.met.BulkItems.WithLabelValues(string(action), string(outcome.Status)).Inc()
		}
		switch outcome.Status {
		case OutcomeSuccess:
			succeeded = append(succeeded, id)
		case OutcomeFailure:
			result.Failed = append(result.Failed, id)
		}
	}

	// only successful identifiers leave the selection; failed and skipped
	// ones stay so a retry does not need re-selecting
	tracker.Prune(succeeded)

	result.Status = BatchCompleted
	if len(succeeded) != len(ids) {
		result.Status = BatchPartial
	}
	result.FinishedAt = time.Now()

	if b.met != nil {
		b.met.BulkBatches.WithLabelValues(string(action), result.Status).Inc()
	}
	b.log.Info().
		Str("batch_id", result.BatchID).
		Str("collection", string(col)).
		Str("action", string(action)).
		Int("total", len(ids)).
		Int("succeeded", len(succeeded)).
		Int("failed", len(result.Failed)).
		Str("status", result.Status).
		Msg("bulk action finished")

	return result, nil
}

// applyOne performs the remote call for a single identifier and applies the
// local effect on success. A remote NotFound is success-by-absence: the
// entity is already gone, so the local copy is pruned and the item counts
// as succeeded.
func (b *BulkService) applyOne(ctx context.Context, col Collection, action Action, id string) Outcome {
	if !b.exists(col, id) {
		return Outcome{ID: id, Status: OutcomeSkipped, Reason: "no longer present"}
	}

	err := b.callRemote(ctx, col, action, id)
	if errors.Is(err, remote.ErrNotFound) {
		// the entity is already gone remotely: success by absence, and the
		// local copy is pruned
		b.removeLocal(col, id)
		return Outcome{ID: id, Status: OutcomeSuccess}
	}
	if err != nil {
		b.log.Warn().Err(err).Str("id", id).Str("action", string(action)).Msg("bulk item failed")
		return Outcome{ID: id, Status: OutcomeFailure, Reason: err.Error()}
	}

	b.applyLocal(col, action, id)
	return Outcome{ID: id, Status: OutcomeSuccess}
}

func (b *BulkService) callRemote(ctx context.Context, col Collection, action Action, id string) error {
	switch col {
	case CollectionSessions:
		switch action {
		case ActionTerminate:
			return b.client.TerminateSession(ctx, id, "")
		case ActionTrust:
			return b.client.TrustSession(ctx, id, true)
		case ActionUntrust:
			return b.client.TrustSession(ctx, id, false)
		}
	case CollectionDevices:
		switch action {
		case ActionTrust:
			return b.client.TrustDevice(ctx, id, true)
		case ActionUntrust:
			return b.client.TrustDevice(ctx, id, false)
		case ActionRemove:
			return b.client.RemoveDevice(ctx, id)
		}
	case CollectionAlerts:
		switch action {
		case ActionResolve:
			return b.client.ResolveAlert(ctx, id, "")
		case ActionDismiss:
			return b.client.DismissAlert(ctx, id)
		case ActionMarkRead:
			return b.client.MarkAlertRead(ctx, id)
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, col)
}

// applyLocal mirrors a confirmed remote mutation into the store.
func (b *BulkService) applyLocal(col Collection, action Action, id string) {
	switch col {
	case CollectionSessions:
		switch action {
		case ActionTerminate:
			b.store.RemoveSession(id)
			b.sessionSel.Prune([]string{id})
		case ActionTrust, ActionUntrust:
			if sess, ok := b.store.Session(id); ok {
				sess.IsTrusted = action == ActionTrust
				scoring.Rescore(&sess)
				b.store.UpsertSession(sess)
			}
		}
	case CollectionDevices:
		switch action {
		case ActionRemove:
			b.store.RemoveDevice(id)
			b.deviceSel.Prune([]string{id})
		case ActionTrust, ActionUntrust:
			if dev, ok := b.store.Device(id); ok {
				dev.IsTrusted = action == ActionTrust
				scoring.RescoreDevice(&dev)
				b.store.UpsertDevice(dev)
			}
		}
	case CollectionAlerts:
		switch action {
		case ActionDismiss:
			b.store.RemoveAlert(id)
			b.alertSel.Prune([]string{id})
		case ActionResolve:
			if a, ok := b.store.Alert(id); ok && !a.IsResolved {
				now := time.Now()
				a.IsResolved = true
				a.ResolvedAt = &now
				b.store.UpsertAlert(a)
			}
		case ActionMarkRead:
			if a, ok := b.store.Alert(id); ok {
				a.IsRead = true
				b.store.UpsertAlert(a)
			}
		}
	}
}

// ResolveAlertWithNote resolves one alert and records the resolution note.
// Resolution is terminal: an already-resolved alert is left untouched.
func (b *BulkService) ResolveAlertWithNote(ctx context.Context, id, note string) error {
	b.gate.Lock()
	defer b.gate.Unlock()

	if !b.exists(CollectionAlerts, id) {
		return nil
	}

	err := b.client.ResolveAlert(ctx, id, note)
	if errors.Is(err, remote.ErrNotFound) {
		b.removeLocal(CollectionAlerts, id)
		return nil
	}
	if err != nil {
		return err
	}

	if a, ok := b.store.Alert(id); ok && !a.IsResolved {
		now := time.Now()
		a.IsResolved = true
		a.ResolvedAt = &now
		if note != "" {
			a.ResolutionNote = &note
		}
		b.store.UpsertAlert(a)
	}
	b.alertSel.Prune([]string{id})
	return nil
}

// TerminateSessionWithReason ends one session and forwards the caller's
// reason to the remote system. An unknown id and a remote 404 both count
// as already terminated.
func (b *BulkService) TerminateSessionWithReason(ctx context.Context, id, reason string) error {
	b.gate.Lock()
	defer b.gate.Unlock()

	if !b.exists(CollectionSessions, id) {
		return nil
	}

	err := b.client.TerminateSession(ctx, id, reason)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}
	b.removeLocal(CollectionSessions, id)
	return nil
}

// removeLocal drops an entity the remote system no longer knows.
func (b *BulkService) removeLocal(col Collection, id string) {
	switch col {
	case CollectionSessions:
		b.store.RemoveSession(id)
		b.sessionSel.Prune([]string{id})
	case CollectionDevices:
		b.store.RemoveDevice(id)
		b.deviceSel.Prune([]string{id})
	case CollectionAlerts:
		b.store.RemoveAlert(id)
		b.alertSel.Prune([]string{id})
	}
}

func (b *BulkService) exists(col Collection, id string) bool {
	switch col {
	case CollectionSessions:
		return b.store.HasSession(id)
	case CollectionDevices:
		return b.store.HasDevice(id)
	case CollectionAlerts:
		return b.store.HasAlert(id)
	}
	return false
}

func (b *BulkService) trackerFor(col Collection) *selection.Tracker {
	switch col {
	case CollectionDevices:
		return b.deviceSel
	case CollectionAlerts:
		return b.alertSel
	}
	return b.sessionSel
}

func validateAction(col Collection, action Action) error {
	valid := map[Collection]map[Action]bool{
		CollectionSessions: {ActionTerminate: true, ActionTrust: true, ActionUntrust: true},
		CollectionDevices:  {ActionTrust: true, ActionUntrust: true, ActionRemove: true},
		CollectionAlerts:   {ActionResolve: true, ActionDismiss: true, ActionMarkRead: true},
	}
	actions, ok := valid[col]
	if !ok {
		return ErrUnknownCollection
	}
	if !actions[action] {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, col)
	}
	return nil
}
