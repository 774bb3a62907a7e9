// Package mapping loads the static provider-to-internal-code tables and
// answers lookups against them.
package mapping

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"PartsHub/internal/listing"
	"PartsHub/internal/record"
)

const fileSuffix = ".mapping.json"

// Schema names the fields of one provider's mapping file and the key field of
// that provider's listing.
type Schema struct {
	InternalField string
	ExternalField string
	ListingKey    string
}

var defaultSchema = Schema{
	InternalField: "meu_codigo",
	ExternalField: "codigo_api",
	ListingKey:    "id",
}

// DefaultSchemas covers the providers shipped with mapping files.
var DefaultSchemas = map[string]Schema{
	"notus": {
		InternalField: "Produto",
		ExternalField: "Código de Conversão",
		ListingKey:    "codigo",
	},
	"ikro": defaultSchema,
}

type Store struct {
	dir     string
	schemas map[string]Schema
	log     *zap.Logger

	mu     sync.RWMutex
	tables map[string][]record.Record
}

// NewStore reads every mapping file under dir. Load problems are logged and
// never returned.
func NewStore(dir string, schemas map[string]Schema, log *zap.Logger) *Store {
	if schemas == nil {
		schemas = DefaultSchemas
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		dir:     dir,
		schemas: schemas,
		log:     log,
		tables:  map[string][]record.Record{},
	}
	s.load()
	return s
}

// Reload discards all tables and reads the files again. Readers observe either
// the previous or the new table set.
func (s *Store) Reload() {
	s.log.Info("reloading mappings", zap.String("dir", s.dir))
	s.load()
}

func (s *Store) load() {
	tables := readTables(s.dir, s.log)

	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
}

func readTables(dir string, log *zap.Logger) map[string][]record.Record {
	tables := map[string][]record.Record{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error("read mappings dir failed", zap.String("dir", dir), zap.Error(err))
		return tables
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		provider := strings.TrimSuffix(e.Name(), fileSuffix)
		path := filepath.Join(dir, e.Name())

		recs, err := readFile(path)
		if err != nil {
			log.Error("load mapping failed",
				zap.String("provider", provider),
				zap.String("file", path),
				zap.Error(err),
			)
			tables[provider] = []record.Record{}
			continue
		}

		tables[provider] = recs
		log.Info("mapping loaded", zap.String("provider", provider), zap.Int("items", len(recs)))
	}

	return tables
}

func readFile(path string) ([]record.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return record.ParseArray(b)
}

// Schema returns the field layout for provider, falling back to the generic
// meu_codigo/codigo_api layout.
func (s *Store) Schema(provider string) Schema {
	if sc, ok := s.schemas[provider]; ok {
		return sc
	}
	return defaultSchema
}

// ByProvider returns the provider's rows in file order, empty if unknown.
func (s *Store) ByProvider(provider string) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[provider]; ok {
		return t
	}
	return []record.Record{}
}

func (s *Store) FindByInternalCode(provider, code string) (record.Record, bool) {
	field := s.Schema(provider).InternalField
	for _, r := range s.ByProvider(provider) {
		if r.Equals(field, code) {
			return r, true
		}
	}
	return nil, false
}

func (s *Store) FindExternalCodeByInternalRef(provider, ref string) (string, bool) {
	r, ok := s.FindByInternalCode(provider, ref)
	if !ok {
		return "", false
	}
	return r.Field(s.Schema(provider).ExternalField)
}

// FindByExternalCode returns every row pointing at the given vendor code.
func (s *Store) FindByExternalCode(provider, code string) []record.Record {
	field := s.Schema(provider).ExternalField
	out := make([]record.Record, 0, 1)
	for _, r := range s.ByProvider(provider) {
		if r.Equals(field, code) {
			out = append(out, r)
		}
	}
	return out
}

// ExternalCodes collects the provider's external code column as a set.
func (s *Store) ExternalCodes(provider string) listing.CodeSet {
	field := s.Schema(provider).ExternalField
	rows := s.ByProvider(provider)

	codes := make(listing.CodeSet, len(rows))
	for _, r := range rows {
		if v, ok := r.Field(field); ok {
			codes[v] = struct{}{}
		}
	}
	return codes
}

// Providers lists the loaded provider names in sorted order.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.tables))
	for p := range s.tables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Totals maps each loaded provider to its row count.
func (s *Store) Totals() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.tables))
	for p, t := range s.tables {
		out[p] = len(t)
	}
	return out
}
