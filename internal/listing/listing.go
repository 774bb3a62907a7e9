// Package listing filters an already fetched vendor listing in memory.
package listing

import "PartsHub/internal/record"

// CodeSet is a set of external codes taken from a mapping table.
type CodeSet map[string]struct{}

func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Mapped keeps the entries whose key field is present in codes.
func Mapped(entries []record.Record, key string, codes CodeSet) []record.Record {
	out := make([]record.Record, 0, len(codes))
	for _, e := range entries {
		if v, ok := e.Field(key); ok && codes.Has(v) {
			out = append(out, e)
		}
	}
	return out
}

// Gap keeps the entries whose key field is not in codes. Together with Mapped
// it partitions entries.
func Gap(entries []record.Record, key string, codes CodeSet) []record.Record {
	out := make([]record.Record, 0, len(entries))
	for _, e := range entries {
		if v, ok := e.Field(key); !ok || !codes.Has(v) {
			out = append(out, e)
		}
	}
	return out
}

// FindByID returns the first entry whose key field equals id.
func FindByID(entries []record.Record, key, id string) (record.Record, bool) {
	for _, e := range entries {
		if e.Equals(key, id) {
			return e, true
		}
	}
	return nil, false
}

// Search keeps the entries matching every non-empty filter exactly. Empty
// filter values are skipped, so an empty filter set returns entries as-is.
func Search(entries []record.Record, filters map[string]string) []record.Record {
	active := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			active[k] = v
		}
	}
	if len(active) == 0 {
		return entries
	}

	out := make([]record.Record, 0)
	for _, e := range entries {
		if matchAll(e, active) {
			out = append(out, e)
		}
	}
	return out
}

func matchAll(e record.Record, filters map[string]string) bool {
	for k, v := range filters {
		if !e.Equals(k, v) {
			return false
		}
	}
	return true
}
