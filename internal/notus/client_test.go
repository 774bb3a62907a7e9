package notus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"PartsHub/internal/upstream"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return NewClient(ts.URL+"/produtos.json", upstream.New(Vendor, 2*time.Second, zap.NewNop(), nil))
}

func TestFetchProducts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/produtos.json" {
			t.Errorf("path=%s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"codigo": 1, "id": "a"}, {"codigo": 2, "id": "b"}]`))
	})

	got, err := c.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if len(got) != 2 || !got[1].Equals("codigo", "2") {
		t.Fatalf("got=%v", got)
	}
}

func TestFetchProducts_NullFeed(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	got, err := c.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got=%v", got)
	}
}

func TestFetchProducts_NotAnArray(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"produtos": []}`))
	})

	if _, err := c.FetchProducts(context.Background()); !errors.Is(err, upstream.ErrDecode) {
		t.Fatalf("err=%v", err)
	}
}
