package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"PartsHub/internal/cache"
	"PartsHub/internal/ikro"
	"PartsHub/internal/listing"
	"PartsHub/internal/mapping"
	"PartsHub/internal/notus"
	"PartsHub/internal/record"
)

// Cache slots, one per vendor listing.
const (
	KeyRegulators = "listing:" + ikro.Vendor
	KeyNotus      = "listing:" + notus.Vendor
)

var (
	ErrNotReady        = errors.New("catalog: listing not ready")
	ErrNotFound        = errors.New("catalog: product not found")
	ErrMappingNotFound = errors.New("catalog: mapping not found")
)

// CacheKeys lists every slot the service populates.
func CacheKeys() []string {
	return []string{KeyRegulators, KeyNotus}
}

type RegulatorSource interface {
	FetchRegulators(ctx context.Context) ([]record.Record, error)
	FetchDetailAndApplication(ctx context.Context, group, item string) (ikro.DetailAndApplication, error)
}

type ProductSource interface {
	FetchProducts(ctx context.Context) ([]record.Record, error)
}

// MappingInfo is the per-provider summary served by /api/mappings/info.
type MappingInfo struct {
	TotalItems int `json:"totalItems"`
}

type Service struct {
	Cache    *cache.Cache
	Mappings *mapping.Store
	Ikro     RegulatorSource
	Notus    ProductSource
	Log      *zap.Logger

	fetches singleflight.Group
}

func NewService(c *cache.Cache, m *mapping.Store, ik RegulatorSource, nt ProductSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Cache: c, Mappings: m, Ikro: ik, Notus: nt, Log: log}
}

// Warm populates every cache slot once. Each slot is independent: a failed
// fetch is logged and leaves only that slot not ready.
func (s *Service) Warm(ctx context.Context) {
	for _, key := range s.Cache.Keys() {
		if err := s.Refresh(ctx, key); err != nil {
			s.Log.Error("cache warmup failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Refresh re-fetches the full listing behind key and replaces the slot. On
// failure the slot keeps whatever it held before.
func (s *Service) Refresh(ctx context.Context, key string) error {
	var fetch func(context.Context) ([]record.Record, error)
	switch key {
	case KeyRegulators:
		fetch = s.Ikro.FetchRegulators
	case KeyNotus:
		fetch = s.Notus.FetchProducts
	default:
		return cache.ErrUnknownKey
	}

	if _, err := s.load(ctx, key, fetch); err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	return nil
}

// load fetches a listing and stores it in its slot. Concurrent loads of the
// same key share one upstream call, so a request that misses the cache while
// warmup is fetching waits for that fetch instead of starting another.
func (s *Service) load(ctx context.Context, key string, fetch func(context.Context) ([]record.Record, error)) ([]record.Record, error) {
	v, err, _ := s.fetches.Do(key, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if err := s.Cache.Set(key, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]record.Record), nil
}

func (s *Service) Regulators() ([]record.Record, error) {
	data, ok := s.Cache.Get(KeyRegulators)
	if !ok {
		return nil, ErrNotReady
	}
	return data, nil
}

func (s *Service) RegulatorDetail(ctx context.Context, group, item string) (ikro.DetailAndApplication, error) {
	return s.Ikro.FetchDetailAndApplication(ctx, group, item)
}

// NotusProducts serves the cached feed, fetching and caching it on a miss.
// Concurrent misses share one upstream call.
func (s *Service) NotusProducts(ctx context.Context) ([]record.Record, error) {
	if data, ok := s.Cache.Get(KeyNotus); ok {
		return data, nil
	}

	return s.load(ctx, KeyNotus, s.Notus.FetchProducts)
}

func (s *Service) notusKey() string {
	return s.Mappings.Schema(notus.Vendor).ListingKey
}

// NotusMapped keeps the feed entries that have a mapping row.
func (s *Service) NotusMapped(ctx context.Context) ([]record.Record, error) {
	all, err := s.NotusProducts(ctx)
	if err != nil {
		return nil, err
	}

	mapped := listing.Mapped(all, s.notusKey(), s.Mappings.ExternalCodes(notus.Vendor))
	s.Log.Info("notus mapped products", zap.Int("mapped", len(mapped)), zap.Int("total", len(all)))
	return mapped, nil
}

// NotusGap keeps the feed entries without a mapping row.
func (s *Service) NotusGap(ctx context.Context) ([]record.Record, error) {
	all, err := s.NotusProducts(ctx)
	if err != nil {
		return nil, err
	}

	gap := listing.Gap(all, s.notusKey(), s.Mappings.ExternalCodes(notus.Vendor))
	s.Log.Info("notus catalog gap", zap.Int("unmapped", len(gap)), zap.Int("total", len(all)))
	return gap, nil
}

func (s *Service) NotusByID(ctx context.Context, id string) (record.Record, error) {
	all, err := s.NotusProducts(ctx)
	if err != nil {
		return nil, err
	}

	p, ok := listing.FindByID(all, s.notusKey(), id)
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) SearchNotus(ctx context.Context, filters map[string]string) ([]record.Record, error) {
	all, err := s.NotusProducts(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Search(all, filters), nil
}

// NotusMappingByCode returns the first NOTUS mapping row for a vendor code.
func (s *Service) NotusMappingByCode(code string) (record.Record, error) {
	rows := s.Mappings.FindByExternalCode(notus.Vendor, code)
	if len(rows) == 0 {
		return nil, ErrMappingNotFound
	}
	return rows[0], nil
}

// NotusByInternalRef resolves an internal product reference through the
// mapping table to the cached NOTUS product. It never triggers a fetch.
func (s *Service) NotusByInternalRef(ref string) (record.Record, error) {
	row, ok := s.Mappings.FindByInternalCode(notus.Vendor, ref)
	if !ok {
		return nil, ErrMappingNotFound
	}

	all, ok := s.Cache.Get(KeyNotus)
	if !ok {
		return nil, ErrNotReady
	}

	code, ok := row.Field(s.Mappings.Schema(notus.Vendor).ExternalField)
	if !ok {
		return nil, ErrNotFound
	}
	p, ok := listing.FindByID(all, s.notusKey(), code)
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) MappingInfo() map[string]MappingInfo {
	totals := s.Mappings.Totals()
	out := make(map[string]MappingInfo, len(totals))
	for p, n := range totals {
		out[p] = MappingInfo{TotalItems: n}
	}
	return out
}

func (s *Service) ReloadMappings() map[string]MappingInfo {
	s.Mappings.Reload()
	return s.MappingInfo()
}
