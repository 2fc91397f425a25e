package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/guardview/guardview/internal/model"
	"github.com/guardview/guardview/internal/query"
	"github.com/guardview/guardview/internal/remote"
	"github.com/guardview/guardview/internal/service"
)

// listQuery mirrors the URL query parameters of the list endpoints. Values
// are validated before anything reaches the query engine.
type listQuery struct {
	DeviceType string `validate:"omitempty,oneof=mobile desktop tablet other"`
	RiskLevel  string `validate:"omitempty,oneof=low medium high critical"`
	AlertType  string `validate:"omitempty,oneof=suspicious_activity new_device location_change security_threat session_timeout device_compromise account_lockout unusual_behavior other"`
	Severity   string `validate:"omitempty,oneof=low medium high critical"`
	IsTrusted  string `validate:"omitempty,oneof=true false"`
	IsActive   string `validate:"omitempty,oneof=true false"`
	IsResolved string `validate:"omitempty,oneof=true false"`
	From       string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To         string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Order      string `validate:"omitempty,oneof=asc desc"`
	Search     string
	Sort       string
}

func (h *Handler) parseListQuery(r *http.Request) (query.Filter, query.SortKey, query.Order, error) {
	q := r.URL.Query()
	lq := listQuery{
		DeviceType: q.Get("deviceType"),
		RiskLevel:  q.Get("riskLevel"),
		AlertType:  q.Get("alertType"),
		Severity:   q.Get("severity"),
		IsTrusted:  q.Get("isTrusted"),
		IsActive:   q.Get("isActive"),
		IsResolved: q.Get("isResolved"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Order:      q.Get("order"),
		Search:     q.Get("search"),
		Sort:       q.Get("sort"),
	}
	if err := h.validate.Struct(lq); err != nil {
		return query.Filter{}, "", "", err
	}

	var f query.Filter
	if lq.DeviceType != "" {
		dt := model.DeviceType(lq.DeviceType)
		f.DeviceType = &dt
	}
	if lq.RiskLevel != "" {
		rl := model.RiskLevel(lq.RiskLevel)
		f.RiskLevel = &rl
	}
	if lq.AlertType != "" {
		at := model.AlertType(lq.AlertType)
		f.AlertType = &at
	}
	if lq.Severity != "" {
		sev := model.AlertSeverity(lq.Severity)
		f.Severity = &sev
	}
	if lq.IsTrusted != "" {
		v := lq.IsTrusted == "true"
		f.IsTrusted = &v
	}
	if lq.IsActive != "" {
		v := lq.IsActive == "true"
		f.IsActive = &v
	}
	if lq.IsResolved != "" {
		v := lq.IsResolved == "true"
		f.IsResolved = &v
	}
	f.Search = lq.Search
	if lq.From != "" {
		t, _ := time.Parse(time.RFC3339, lq.From)
		f.Created.From = &t
	}
	if lq.To != "" {
		t, _ := time.Parse(time.RFC3339, lq.To)
		f.Created.To = &t
	}

	return f, query.SortKey(lq.Sort), query.Order(lq.Order), nil
}

// --- List views ---

// ListSessions returns the filtered, sorted session view
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	f, key, ord, err := h.parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	sessions, err := h.securitySvc.SessionView(f, key, ord)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "total": len(sessions)})
}

// ListDevices returns the filtered, sorted device view
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	f, key, ord, err := h.parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	devices, err := h.securitySvc.DeviceView(f, key, ord)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices, "total": len(devices)})
}

// ListAlerts returns the filtered, sorted alert view
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	f, key, ord, err := h.parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	alerts, err := h.securitySvc.AlertView(f, key, ord)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts, "total": len(alerts)})
}

// GetDashboard returns the current dashboard aggregate
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard": h.securitySvc.Dashboard(),
		"state":     h.reconcileSvc.State(),
	})
}

// Refresh triggers an immediate reconciliation pass
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.reconcileSvc.Fetch(r.Context())
	switch {
	case errors.Is(err, service.ErrFetchInFlight):
		writeError(w, http.StatusConflict, "fetch_in_flight", "A refresh is already running")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("manual refresh failed")
		writeError(w, http.StatusBadGateway, "remote_unavailable", "Failed to fetch from the remote security API")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": h.reconcileSvc.State()})
}

// --- Selection ---

func parseCollection(r *http.Request) (service.Collection, error) {
	switch r.PathValue("collection") {
	case "sessions":
		return service.CollectionSessions, nil
	case "devices":
		return service.CollectionDevices, nil
	case "alerts":
		return service.CollectionAlerts, nil
	}
	return "", service.ErrUnknownCollection
}

// GetSelection returns the selected identifiers of a collection
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	col, err := parseCollection(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return
	}

	ids, err := h.securitySvc.Selection(col)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": ids, "count": len(ids)})
}

// UpdateSelection toggles a single identifier in a collection's selection
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	col, err := parseCollection(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return
	}

	var req struct {
		ID       string `json:"id" validate:"required"`
		Selected bool   `json:"selected"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.securitySvc.Select(col, req.ID, req.Selected); err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	ids, _ := h.securitySvc.Selection(col)
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": ids, "count": len(ids)})
}

// SelectAll replaces a collection's selection with the visible set of the
// given filter, or clears it
func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	col, err := parseCollection(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return
	}

	var req struct {
		Selected bool `json:"selected"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	f, _, _, err := h.parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.securitySvc.SelectAll(col, f, req.Selected); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ids, _ := h.securitySvc.Selection(col)
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": ids, "count": len(ids)})
}

// --- Bulk actions ---

// BulkAction applies an action to a collection's current selection
func (h *Handler) BulkAction(w http.ResponseWriter, r *http.Request) {
	col, err := parseCollection(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return
	}

	var req struct {
		Action string `json:"action" validate:"required,oneof=terminate trust untrust remove resolve dismiss mark_read"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result, err := h.securitySvc.BulkAction(r.Context(), col, service.Action(req.Action))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedAction) {
			writeError(w, http.StatusBadRequest, "unsupported_action", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("bulk action failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to run bulk action")
		return
	}

	h.log.AuditLog(req.Action, string(col), result.BatchID, map[string]interface{}{
		"total":  len(result.Outcomes),
		"failed": len(result.Failed),
		"status": result.Status,
	})
	writeJSON(w, http.StatusOK, result)
}

// --- Single-entity intents ---

// TerminateSession ends one session
func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
			return
		}
	}

	if err := h.securitySvc.TerminateSession(r.Context(), id, req.Reason); err != nil {
		h.intentError(w, "terminate session", err)
		return
	}
	h.log.AuditLog("terminate", "session", id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

// TrustSession sets the trust flag of one session
func (h *Handler) TrustSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Trusted *bool `json:"trusted" validate:"required"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.securitySvc.TrustSession(r.Context(), id, *req.Trusted); err != nil {
		h.intentError(w, "trust session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"trusted": *req.Trusted})
}

// TrustDevice sets the trust flag of one device
func (h *Handler) TrustDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Trusted *bool `json:"trusted" validate:"required"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := h.securitySvc.TrustDevice(r.Context(), id, *req.Trusted); err != nil {
		h.intentError(w, "trust device", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"trusted": *req.Trusted})
}

// RemoveDevice deletes one device registration
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.securitySvc.RemoveDevice(r.Context(), id); err != nil {
		h.intentError(w, "remove device", err)
		return
	}
	h.log.AuditLog("remove", "device", id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// MarkAlertRead marks one alert as read
func (h *Handler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.securitySvc.MarkAlertRead(r.Context(), id); err != nil {
		h.intentError(w, "mark alert read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// ResolveAlert resolves one alert, optionally with a note
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
			return
		}
	}

	if err := h.securitySvc.ResolveAlert(r.Context(), id, req.Note); err != nil {
		h.intentError(w, "resolve alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// DismissAlert dismisses one alert
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.securitySvc.DismissAlert(r.Context(), id); err != nil {
		h.intentError(w, "dismiss alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func (h *Handler) intentError(w http.ResponseWriter, what string, err error) {
	var te *remote.TransientError
	if errors.As(err, &te) {
		writeError(w, http.StatusBadGateway, "remote_unavailable", "The remote security API is unavailable")
		return
	}
	h.log.Error().Err(err).Msg("failed to " + what)
	writeError(w, http.StatusInternalServerError, "internal_error", "Failed to "+what)
}
