package mapping

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const notusMapping = `[
	{"Produto": "RG-100", "Código de Conversão": 5001},
	{"Produto": "RG-200", "Código de Conversão": "5002"},
	{"Produto": "RG-100", "Código de Conversão": 5999},
	{"Produto": "RG-300"}
]`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, dir, "notus.mapping.json", notusMapping)
	writeFile(t, dir, "ikro.mapping.json", `[{"meu_codigo": "A1", "codigo_api": "77"}]`)
	writeFile(t, dir, "README.md", "not a mapping")

	return NewStore(dir, nil, zap.NewNop()), dir
}

func TestLoad(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, []string{"ikro", "notus"}, s.Providers())
	assert.Equal(t, map[string]int{"ikro": 1, "notus": 4}, s.Totals())
	assert.Len(t, s.ByProvider("notus"), 4)
	assert.Empty(t, s.ByProvider("unknown"))
	assert.NotNil(t, s.ByProvider("unknown"))
}

func TestLoadMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), nil, zap.NewNop())

	assert.Empty(t, s.Providers())
	assert.Empty(t, s.ByProvider("notus"))
}

func TestLoadMalformedFileYieldsEmptyProvider(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notus.mapping.json", `[{"Produto": `)
	writeFile(t, dir, "ikro.mapping.json", `[{"meu_codigo": "A1"}]`)

	s := NewStore(dir, nil, zap.NewNop())

	assert.Equal(t, map[string]int{"ikro": 1, "notus": 0}, s.Totals())
	assert.Empty(t, s.ByProvider("notus"))
}

func TestLookups(t *testing.T) {
	s, _ := newTestStore(t)

	r, ok := s.FindByInternalCode("notus", "RG-100")
	require.True(t, ok)
	assert.True(t, r.Equals("Código de Conversão", "5001"), "first match wins")

	_, ok = s.FindByInternalCode("notus", "RG-999")
	assert.False(t, ok)

	code, ok := s.FindExternalCodeByInternalRef("notus", "RG-200")
	require.True(t, ok)
	assert.Equal(t, "5002", code)

	_, ok = s.FindExternalCodeByInternalRef("notus", "RG-300")
	assert.False(t, ok, "row without external code")

	code, ok = s.FindExternalCodeByInternalRef("ikro", "A1")
	require.True(t, ok)
	assert.Equal(t, "77", code)

	assert.Len(t, s.FindByExternalCode("notus", "5001"), 1)
	assert.Empty(t, s.FindByExternalCode("notus", "1"))
}

func TestExternalCodes(t *testing.T) {
	s, _ := newTestStore(t)

	codes := s.ExternalCodes("notus")
	assert.Len(t, codes, 3)
	assert.True(t, codes.Has("5001"))
	assert.True(t, codes.Has("5002"))
	assert.True(t, codes.Has("5999"))
	assert.Empty(t, s.ExternalCodes("unknown"))
}

func TestReload(t *testing.T) {
	s, dir := newTestStore(t)

	writeFile(t, dir, "notus.mapping.json", `[{"Produto": "X", "Código de Conversão": 1}]`)
	require.NoError(t, os.Remove(filepath.Join(dir, "ikro.mapping.json")))
	writeFile(t, dir, "acme.mapping.json", `[]`)

	s.Reload()

	assert.Equal(t, []string{"acme", "notus"}, s.Providers())
	assert.Len(t, s.ByProvider("notus"), 1)
	assert.Empty(t, s.ByProvider("ikro"))
}

// replaceFile swaps in a new file body with a rename, so a concurrent reload
// reads either the old or the new file whole.
func replaceFile(t *testing.T, dir, name, body string) {
	t.Helper()
	writeFile(t, dir, name+".tmp", body)
	require.NoError(t, os.Rename(filepath.Join(dir, name+".tmp"), filepath.Join(dir, name)))
}

func TestReloadWithConcurrentReaders(t *testing.T) {
	s, dir := newTestStore(t)

	const (
		ikroV1  = `[{"meu_codigo": "A1", "codigo_api": "77"}]`
		ikroV2  = `[{"meu_codigo": "A1", "codigo_api": "78"}, {"meu_codigo": "B2", "codigo_api": "79"}]`
		notusV2 = `[{"Produto": "RG-900", "Código de Conversão": 9001}]`
	)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				totals := s.Totals()
				if len(totals) != 2 {
					t.Errorf("saw %d providers, want 2", len(totals))
					return
				}
				if n := totals["notus"]; n != 4 && n != 1 {
					t.Errorf("notus total %d", n)
					return
				}
				if n := len(s.ByProvider("ikro")); n != 1 && n != 2 {
					t.Errorf("ikro rows %d", n)
					return
				}
				if n := len(s.ExternalCodes("notus")); n != 3 && n != 1 {
					t.Errorf("notus external codes %d", n)
					return
				}
				if _, ok := s.FindByInternalCode("ikro", "A1"); !ok {
					t.Error("A1 missing from ikro mapping")
					return
				}
				if !slices.Equal(s.Providers(), []string{"ikro", "notus"}) {
					t.Errorf("providers %v", s.Providers())
					return
				}
			}
		}()
	}

	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			replaceFile(t, dir, "notus.mapping.json", notusV2)
			replaceFile(t, dir, "ikro.mapping.json", ikroV2)
		} else {
			replaceFile(t, dir, "notus.mapping.json", notusMapping)
			replaceFile(t, dir, "ikro.mapping.json", ikroV1)
		}
		s.Reload()
	}
	close(done)
	wg.Wait()

	assert.Equal(t, map[string]int{"ikro": 1, "notus": 4}, s.Totals())
}

func TestSchemaFallback(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, "codigo", s.Schema("notus").ListingKey)
	assert.Equal(t, "meu_codigo", s.Schema("acme").InternalField)
}
