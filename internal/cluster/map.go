// Package cluster maintains the slot→endpoint table and the
// endpoint→connection cache for a Redis Cluster deployment: slot
// derivation (slot.go) plus the routing table itself (this file).
package cluster

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jsp-lqk/metapipe-redis/internal/conn"
	"github.com/jsp-lqk/metapipe-redis/internal/parser"
)

// Map holds a slot→endpoint table and memoizes one Connection per
// endpoint. Every routing lookup goes through SlotOf then the table;
// missing entries fall back to the configured default endpoint.
type Map struct {
	mu       sync.RWMutex
	slots    [NumSlots]conn.Endpoint
	conns    map[conn.Endpoint]*conn.Connection
	fallback conn.Endpoint
	timeout  time.Duration
	logger   hclog.Logger
}

// New returns an empty Map that falls back to fallback until populated by
// SetClusters/AddCluster.
func New(fallback conn.Endpoint, timeout time.Duration, logger hclog.Logger) *Map {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Map{
		conns:    make(map[conn.Endpoint]*conn.Connection),
		fallback: fallback,
		timeout:  timeout,
		logger:   logger.Named("cluster"),
	}
}

// SetClusters replaces the whole slot table, as done after a CLUSTER
// SLOTS refresh.
func (m *Map) SetClusters(ranges []parser.SlotRange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		m.slots[i] = ""
	}
	for _, r := range ranges {
		for s := r.Start; s <= r.End && s < NumSlots; s++ {
			m.slots[s] = r.Endpoint
		}
	}
	m.logger.Debug("slot table replaced", "ranges", len(ranges))
}

// AddCluster sets a single slot entry, used on MOVED without a full
// refresh.
func (m *Map) AddCluster(slot uint16, endpoint conn.Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(slot) < NumSlots {
		m.slots[slot] = endpoint
	}
	m.logger.Debug("slot entry updated", "slot", slot, "endpoint", endpoint)
}

// EndpointForSlot looks up the configured endpoint for slot, falling back
// to the default endpoint if the slot has no entry.
func (m *Map) EndpointForSlot(slot uint16) conn.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(slot) < NumSlots && m.slots[slot] != "" {
		return m.slots[slot]
	}
	return m.fallback
}

// ConnectionForKey resolves key to a slot, then to an endpoint, then to a
// cached Connection, creating the Connection lazily on first use.
func (m *Map) ConnectionForKey(key []byte) *conn.Connection {
	return m.ConnectionForEndpoint(m.EndpointForSlot(SlotOf(key)))
}

// ConnectionForEndpoint returns the memoized Connection for endpoint,
// creating one if this is the first use of that endpoint.
func (m *Map) ConnectionForEndpoint(endpoint conn.Endpoint) *conn.Connection {
	m.mu.RLock()
	c, ok := m.conns[endpoint]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[endpoint]; ok {
		return c
	}
	c = conn.New(endpoint, m.timeout, m.logger)
	m.conns[endpoint] = c
	return c
}

// DefaultEndpoint returns the fallback endpoint used when a slot has no
// table entry.
func (m *Map) DefaultEndpoint() conn.Endpoint {
	return m.fallback
}
