package cache

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PartsHub/internal/record"
)

const (
	keyA = "listing:ikro"
	keyB = "listing:notus"
)

func recs(n int) []record.Record {
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.Record(`{"id":1}`))
	}
	return out
}

func TestReadyLifecycle(t *testing.T) {
	c := New([]string{keyA, keyB}, zap.NewNop(), nil)

	assert.False(t, c.IsReady(keyA))
	data, ok := c.Get(keyA)
	assert.False(t, ok)
	assert.Nil(t, data)

	require.NoError(t, c.Set(keyA, recs(2)))
	assert.True(t, c.IsReady(keyA))
	assert.False(t, c.IsReady(keyB))

	data, ok = c.Get(keyA)
	require.True(t, ok)
	assert.Len(t, data, 2)

	require.NoError(t, c.Clear(keyA))
	assert.False(t, c.IsReady(keyA))
	data, ok = c.Get(keyA)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestSetOverwrites(t *testing.T) {
	c := New([]string{keyA}, zap.NewNop(), nil)

	require.NoError(t, c.Set(keyA, recs(3)))
	first := c.Status()[0].Generation

	require.NoError(t, c.Set(keyA, recs(1)))
	data, _ := c.Get(keyA)
	assert.Len(t, data, 1)
	assert.NotEqual(t, first, c.Status()[0].Generation)
}

func TestSetNilStoresEmptyListing(t *testing.T) {
	c := New([]string{keyA}, zap.NewNop(), nil)

	require.NoError(t, c.Set(keyA, nil))
	data, ok := c.Get(keyA)
	require.True(t, ok)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestUnknownKey(t *testing.T) {
	c := New([]string{keyA}, zap.NewNop(), nil)

	assert.ErrorIs(t, c.Set("listing:other", recs(1)), ErrUnknownKey)
	assert.ErrorIs(t, c.Clear("listing:other"), ErrUnknownKey)
	assert.False(t, c.IsReady("listing:other"))
	assert.False(t, c.Has("listing:other"))
}

func TestClearAllAndStatus(t *testing.T) {
	c := New([]string{keyA, keyB}, zap.NewNop(), nil)
	require.NoError(t, c.Set(keyA, recs(2)))
	require.NoError(t, c.Set(keyB, recs(5)))
	assert.True(t, c.AllReady())

	st := c.Status()
	require.Len(t, st, 2)
	assert.Equal(t, keyA, st[0].Key)
	assert.Equal(t, 5, st[1].Items)
	assert.NotNil(t, st[1].StoredAt)

	c.ClearAll()
	assert.False(t, c.AllReady())
	for _, s := range c.Status() {
		assert.False(t, s.Ready)
		assert.Nil(t, s.StoredAt)
	}
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New([]string{keyA}, zap.NewNop(), reg)

	require.NoError(t, c.Set(keyA, recs(4)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.readyGauge.WithLabelValues(keyA)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.itemsGauge.WithLabelValues(keyA)))

	require.NoError(t, c.Clear(keyA))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.readyGauge.WithLabelValues(keyA)))
}

func TestGaugesFollowConcurrentWriters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New([]string{keyA, keyB}, zap.NewNop(), reg)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				switch (n + j) % 4 {
				case 0:
					_ = c.Clear(keyA)
				case 1:
					c.ClearAll()
				default:
					_ = c.Set(keyA, recs(n))
					_ = c.Set(keyB, recs(n+j))
				}
			}
		}(i)
	}
	wg.Wait()

	for _, k := range c.Keys() {
		ready, items := 0.0, 0.0
		if data, ok := c.Get(k); ok {
			ready, items = 1, float64(len(data))
		}
		assert.Equal(t, ready, testutil.ToFloat64(c.readyGauge.WithLabelValues(k)), k)
		assert.Equal(t, items, testutil.ToFloat64(c.itemsGauge.WithLabelValues(k)), k)
	}
}

func TestKeysReturnsCopy(t *testing.T) {
	c := New([]string{keyA, keyB}, zap.NewNop(), nil)

	keys := c.Keys()
	assert.Equal(t, []string{keyA, keyB}, keys)
	keys[0] = "listing:other"
	assert.Equal(t, []string{keyA, keyB}, c.Keys())
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	c := New([]string{keyA}, zap.NewNop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if data, ok := c.Get(keyA); ok {
					if len(data) != 10 && len(data) != 20 {
						t.Errorf("partial listing of %d records", len(data))
						return
					}
				}
			}
		}()
	}

	for j := 0; j < 100; j++ {
		_ = c.Set(keyA, recs(10))
		_ = c.Set(keyA, recs(20))
	}
	wg.Wait()
}
