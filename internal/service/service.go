// Package service wires the core components together: reconciliation of
// remote and push state into the store, bulk actions against the remote
// system, and the read-only view surface.
package service

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Collection names an entity collection targeted by an operation.
type Collection string

const (
	CollectionSessions Collection = "sessions"
	CollectionDevices  Collection = "devices"
	CollectionAlerts   Collection = "alerts"
)

// ErrUnknownCollection is returned for a collection name outside the three
// known ones.
var ErrUnknownCollection = errors.New("unknown collection")

// Gate serializes state mutations: a reconciliation pass never interleaves
// with another pass or with a bulk-action batch. An operation that arrives
// while the gate is held blocks until the holder finishes, which implements
// the queue-and-apply-after ordering for push events received mid-fetch.
type Gate struct {
	mu sync.Mutex
}

// NewGate creates a Gate.
func NewGate() *Gate { return &Gate{} }

// Lock acquires the gate.
func (g *Gate) Lock() { g.mu.Lock() }

// Unlock releases the gate.
func (g *Gate) Unlock() { g.mu.Unlock() }

// generateID creates a prefixed identifier for batches and local alerts.
func generateID(prefix string) string {
	clean := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix != "" {
		return prefix + "_" + clean[:26]
	}
	return clean
}
