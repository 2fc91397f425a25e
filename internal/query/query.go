// Package query filters, searches and sorts the entity collections. Every
// call recomputes from scratch over a snapshot; results are deterministic
// for an unchanged collection because sorting is stable and ties keep the
// collection's insertion order.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guardview/guardview/internal/model"
)

// Order controls sort direction. It inverts comparison only; tie-break
// behavior is unaffected.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortKey selects the comparable projection used for ordering.
type SortKey string

const (
	SortCreatedAt     SortKey = "created_at"
	SortLastActivity  SortKey = "last_activity"
	SortSecurityScore SortKey = "security_score"
	SortRiskLevel     SortKey = "risk_level"
	SortTrustScore    SortKey = "trust_score"
	SortTrustLevel    SortKey = "trust_level"
	SortLastUsed      SortKey = "last_used"
	SortUsageCount    SortKey = "usage_count"
	SortSeverity      SortKey = "severity"
	SortName          SortKey = "name"
)

var sessionSortKeys = map[SortKey]bool{
	SortCreatedAt:     true,
	SortLastActivity:  true,
	SortSecurityScore: true,
	SortRiskLevel:     true,
	SortName:          true,
}

var deviceSortKeys = map[SortKey]bool{
	SortCreatedAt:  true,
	SortLastUsed:   true,
	SortTrustScore: true,
	SortTrustLevel: true,
	SortUsageCount: true,
	SortName:       true,
}

var alertSortKeys = map[SortKey]bool{
	SortCreatedAt: true,
	SortSeverity:  true,
}

// DateRange is an inclusive createdAt bound. Nil ends are unconstrained.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Filter is a conjunction of independent optional clauses. Nil pointer or
// empty string means "no constraint". An entity matches iff it passes every
// clause that is set.
type Filter struct {
	DeviceType *model.DeviceType
	RiskLevel  *model.RiskLevel
	AlertType  *model.AlertType
	Severity   *model.AlertSeverity
	IsTrusted  *bool
	IsActive   *bool
	IsResolved *bool
	Search     string
	Created    DateRange
}

// ValidationError reports a malformed filter or sort request. It is raised
// before any clause is evaluated, so a bad request is never partially
// applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

func validate(f Filter, key SortKey, ord Order, keys map[SortKey]bool) error {
	if key != "" && !keys[key] {
		return &ValidationError{Field: "sort", Reason: fmt.Sprintf("unsupported key %q", key)}
	}
	if ord != "" && ord != Asc && ord != Desc {
		return &ValidationError{Field: "order", Reason: fmt.Sprintf("must be %q or %q", Asc, Desc)}
	}
	if f.Created.From != nil && f.Created.To != nil && f.Created.To.Before(*f.Created.From) {
		return &ValidationError{Field: "created", Reason: "range end precedes start"}
	}
	return nil
}

// Sessions returns the sessions matching the filter, ordered by the sort
// key. The input slice is not modified.
func Sessions(in []model.Session, f Filter, key SortKey, ord Order) ([]model.Session, error) {
	if err := validate(f, key, ord, sessionSortKeys); err != nil {
		return nil, err
	}

	out := make([]model.Session, 0, len(in))
	for _, s := range in {
		if !matchSession(s, f) {
			continue
		}
		out = append(out, s)
	}

	if key != "" {
		sortSlice(out, ord, func(s model.Session) int64 {
			switch key {
			case SortCreatedAt:
				return s.CreatedAt.UnixMilli()
			case SortLastActivity:
				return s.LastActivity.UnixMilli()
			case SortSecurityScore:
				return int64(s.SecurityScore)
			case SortRiskLevel:
				return int64(s.RiskLevel.Rank())
			}
			return 0
		}, func(s model.Session) string {
			if key == SortName {
				return strings.ToLower(s.DeviceName)
			}
			return ""
		})
	}
	return out, nil
}

// Devices returns the devices matching the filter, ordered by the sort key.
func Devices(in []model.Device, f Filter, key SortKey, ord Order) ([]model.Device, error) {
	if err := validate(f, key, ord, deviceSortKeys); err != nil {
		return nil, err
	}

	out := make([]model.Device, 0, len(in))
	for _, d := range in {
		if !matchDevice(d, f) {
			continue
		}
		out = append(out, d)
	}

	if key != "" {
		sortSlice(out, ord, func(d model.Device) int64 {
			switch key {
			case SortCreatedAt:
				return d.CreatedAt.UnixMilli()
			case SortLastUsed:
				return d.LastUsed.UnixMilli()
			case SortTrustScore:
				return int64(d.TrustScore)
			case SortTrustLevel:
				return int64(d.TrustLevel.Rank())
			case SortUsageCount:
				return int64(d.UsageCount)
			}
			return 0
		}, func(d model.Device) string {
			if key == SortName {
				return strings.ToLower(d.Name)
			}
			return ""
		})
	}
	return out, nil
}

// Alerts returns the alerts matching the filter, ordered by the sort key.
func Alerts(in []model.SecurityAlert, f Filter, key SortKey, ord Order) ([]model.SecurityAlert, error) {
	if err := validate(f, key, ord, alertSortKeys); err != nil {
		return nil, err
	}

	out := make([]model.SecurityAlert, 0, len(in))
	for _, a := range in {
		if !matchAlert(a, f) {
			continue
		}
		out = append(out, a)
	}

	if key != "" {
		sortSlice(out, ord, func(a model.SecurityAlert) int64 {
			switch key {
			case SortCreatedAt:
				return a.CreatedAt.UnixMilli()
			case SortSeverity:
				return int64(a.Severity.Rank())
			}
			return 0
		}, func(model.SecurityAlert) string { return "" })
	}
	return out, nil
}

func matchSession(s model.Session, f Filter) bool {
	if f.DeviceType != nil && s.DeviceType != *f.DeviceType {
		return false
	}
	if f.RiskLevel != nil && s.RiskLevel != *f.RiskLevel {
		return false
	}
	if f.IsTrusted != nil && s.IsTrusted != *f.IsTrusted {
		return false
	}
	if f.IsActive != nil && s.IsActive != *f.IsActive {
		return false
	}
	if !f.Created.contains(s.CreatedAt) {
		return false
	}
	if f.Search != "" {
		fields := []string{s.DeviceName, derefStr(s.OS), derefStr(s.Browser), s.IPAddress, s.Location.City}
		if !searchAny(fields, f.Search) {
			return false
		}
	}
	return true
}

func matchDevice(d model.Device, f Filter) bool {
	if f.DeviceType != nil && d.Type != *f.DeviceType {
		return false
	}
	if f.IsTrusted != nil && d.IsTrusted != *f.IsTrusted {
		return false
	}
	if f.IsActive != nil && d.IsActive != *f.IsActive {
		return false
	}
	if !f.Created.contains(d.CreatedAt) {
		return false
	}
	if f.Search != "" {
		fields := []string{d.Name, derefStr(d.Model), derefStr(d.OS), derefStr(d.Browser), d.LastIPAddress}
		if !searchAny(fields, f.Search) {
			return false
		}
	}
	return true
}

func matchAlert(a model.SecurityAlert, f Filter) bool {
	if f.AlertType != nil && a.Type != *f.AlertType {
		return false
	}
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.IsResolved != nil && a.IsResolved != *f.IsResolved {
		return false
	}
	if !f.Created.contains(a.CreatedAt) {
		return false
	}
	if f.Search != "" && !searchAny([]string{a.Message}, f.Search) {
		return false
	}
	return true
}

// searchAny matches the needle case-insensitively against any of the fields
// (OR semantics across the field list).
func searchAny(fields []string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// sortSlice stable-sorts by the numeric projection, falling back to the
// string projection when the numeric one is zero for both (name sorts).
// Descending order inverts the comparison only; equal elements keep their
// insertion order either way.
func sortSlice[T any](s []T, ord Order, num func(T) int64, str func(T) string) {
	desc := ord == Desc
	sort.SliceStable(s, func(i, j int) bool {
		a, b := num(s[i]), num(s[j])
		if a == b {
			sa, sb := str(s[i]), str(s[j])
			if sa == sb {
				return false
			}
			if desc {
				return sa > sb
			}
			return sa < sb
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
