package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/pkg/clock"
)

// DeviceKeyPrefix namespaces per-device aggregates in a shared backend
const DeviceKeyPrefix = DefaultKey + ":"

// Registry keeps one open Store per device
type Registry struct {
	base   Options
	notify func(deviceID string, ev Event)
	clock  clock.Clock

	idleTTL time.Duration
	sweeper clock.Timer

	mu       sync.Mutex
	stores   map[string]*Store
	lastUsed map[string]time.Time
	closed   bool
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIdleTTL closes stores that have not been fetched for ttl. Stores with
// approvals still scheduled stay open until those fire. Zero disables eviction.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = ttl }
}

// NewRegistry creates a registry whose stores share base. Key and OnChange are
// set per device; notify receives every device's events.
func NewRegistry(base Options, notify func(deviceID string, ev Event), opts ...RegistryOption) *Registry {
	r := &Registry{
		base:     base,
		notify:   notify,
		clock:    base.Clock,
		stores:   make(map[string]*Store),
		lastUsed: make(map[string]time.Time),
	}
	if r.clock == nil {
		r.clock = clock.Real()
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idleTTL > 0 {
		r.scheduleSweep()
	}
	return r
}

// DeviceKey returns the slot key for a device
func DeviceKey(deviceID string) string {
	return DeviceKeyPrefix + deviceID
}

// Get returns the device's store, opening it from the backend on first use
func (r *Registry) Get(ctx context.Context, deviceID string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrStoreClosed
	}
	if s, ok := r.stores[deviceID]; ok {
		r.lastUsed[deviceID] = r.clock.Now()
		return s, nil
	}

	opts := r.base
	opts.Key = DeviceKey(deviceID)
	if r.notify != nil {
		opts.OnChange = func(ev Event) { r.notify(deviceID, ev) }
	}
	s, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.stores[deviceID] = s
	r.lastUsed[deviceID] = r.clock.Now()
	log.Debug().Str("device_id", deviceID).Msg("state store opened")
	return s, nil
}

// Evict closes and forgets a device's store so the next Get reloads it
func (r *Registry) Evict(deviceID string) {
	r.mu.Lock()
	s, ok := r.stores[deviceID]
	delete(r.stores, deviceID)
	delete(r.lastUsed, deviceID)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

// EvictIdle closes every store not fetched within the idle TTL and returns how
// many were evicted.
func (r *Registry) EvictIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Store
	for id, s := range r.stores {
		if r.lastUsed[id].After(cutoff) || len(s.PendingApprovals()) > 0 {
			continue
		}
		idle = append(idle, s)
		delete(r.stores, id)
		delete(r.lastUsed, id)
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		log.Debug().Int("evicted", len(idle)).Msg("idle state stores closed")
	}
	return len(idle)
}

func (r *Registry) scheduleSweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.sweeper = r.clock.AfterFunc(r.idleTTL, func() {
		r.EvictIdle()
		r.scheduleSweep()
	})
}

// Len reports how many stores are open
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close stops every open store
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sweeper != nil {
		r.sweeper.Stop()
	}
	for id, s := range r.stores {
		s.Close()
		delete(r.stores, id)
		delete(r.lastUsed, id)
	}
	r.closed = true
}
