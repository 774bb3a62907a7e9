// Package cache keeps the last successfully fetched listing per dataset.
//
// The key set is fixed at construction. Each slot points at an immutable
// snapshot that is swapped atomically, so a reader sees either no data or a
// fully populated listing, never a listing under construction. Nothing
// expires; slots change only through Set, Clear and ClearAll.
package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"PartsHub/internal/record"
)

var ErrUnknownKey = errors.New("cache: unknown key")

type snapshot struct {
	data       []record.Record
	storedAt   time.Time
	generation string
}

type slot struct {
	cur atomic.Pointer[snapshot]
}

type Cache struct {
	keys  []string
	slots map[string]*slot
	log   *zap.Logger
	now   func() time.Time

	// mu orders writers so each slot swap and its gauges change together.
	// Readers never take it.
	mu         sync.Mutex
	readyGauge *prometheus.GaugeVec
	itemsGauge *prometheus.GaugeVec
}

// SlotStatus describes one slot for diagnostics.
type SlotStatus struct {
	Key        string     `json:"key"`
	Ready      bool       `json:"ready"`
	Items      int        `json:"items"`
	StoredAt   *time.Time `json:"stored_at,omitempty"`
	Generation string     `json:"generation,omitempty"`
}

// New creates an empty cache over keys. reg may be nil.
func New(keys []string, log *zap.Logger, reg *prometheus.Registry) *Cache {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Cache{
		keys:  append([]string(nil), keys...),
		slots: make(map[string]*slot, len(keys)),
		log:   log,
		now:   time.Now,
		readyGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_cache_ready",
				Help: "1 when the cache slot holds a listing",
			},
			[]string{"key"},
		),
		itemsGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_cache_items",
				Help: "Number of records held by the cache slot",
			},
			[]string{"key"},
		),
	}
	for _, k := range keys {
		c.slots[k] = &slot{}
		c.readyGauge.WithLabelValues(k).Set(0)
		c.itemsGauge.WithLabelValues(k).Set(0)
	}

	if reg != nil {
		reg.MustRegister(c.readyGauge, c.itemsGauge)
	}
	return c
}

func (c *Cache) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Cache) Has(key string) bool {
	_, ok := c.slots[key]
	return ok
}

// Set stores data under key and marks it ready, replacing any previous value.
func (c *Cache) Set(key string, data []record.Record) error {
	s, ok := c.slots[key]
	if !ok {
		return ErrUnknownKey
	}
	if data == nil {
		data = []record.Record{}
	}

	snap := &snapshot{
		data:       data,
		storedAt:   c.now(),
		generation: uuid.NewString(),
	}

	c.mu.Lock()
	c.publish(key, s, snap)
	c.mu.Unlock()

	c.log.Info("cache stored",
		zap.String("key", key),
		zap.Int("items", len(data)),
		zap.String("generation", snap.generation),
	)
	return nil
}

// Get returns the cached listing, ok=false while the slot is not ready.
func (c *Cache) Get(key string) ([]record.Record, bool) {
	s, ok := c.slots[key]
	if !ok {
		return nil, false
	}
	snap := s.cur.Load()
	if snap == nil {
		return nil, false
	}
	return snap.data, true
}

func (c *Cache) IsReady(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Cache) Clear(key string) error {
	s, ok := c.slots[key]
	if !ok {
		return ErrUnknownKey
	}
	c.mu.Lock()
	c.publish(key, s, nil)
	c.mu.Unlock()

	c.log.Info("cache cleared", zap.String("key", key))
	return nil
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	for _, k := range c.keys {
		c.publish(k, c.slots[k], nil)
	}
	c.mu.Unlock()

	c.log.Info("cache cleared", zap.Strings("keys", c.keys))
}

// publish swaps the slot and mirrors it into the gauges. Callers hold c.mu.
func (c *Cache) publish(key string, s *slot, snap *snapshot) {
	s.cur.Store(snap)

	ready, items := 0.0, 0.0
	if snap != nil {
		ready, items = 1, float64(len(snap.data))
	}
	c.readyGauge.WithLabelValues(key).Set(ready)
	c.itemsGauge.WithLabelValues(key).Set(items)
}

// Status reports every slot in construction order.
func (c *Cache) Status() []SlotStatus {
	out := make([]SlotStatus, 0, len(c.keys))
	for _, k := range c.keys {
		st := SlotStatus{Key: k}
		if snap := c.slots[k].cur.Load(); snap != nil {
			at := snap.storedAt
			st.Ready = true
			st.Items = len(snap.data)
			st.StoredAt = &at
			st.Generation = snap.generation
		}
		out = append(out, st)
	}
	return out
}

// AllReady reports whether every slot holds a listing.
func (c *Cache) AllReady() bool {
	for _, k := range c.keys {
		if c.slots[k].cur.Load() == nil {
			return false
		}
	}
	return true
}
