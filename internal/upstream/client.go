// Package upstream is the JSON-over-HTTP client shared by the vendor fetchers.
// Failures are logged with the vendor tag and returned; nothing is retried.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	ErrUnavailable = errors.New("upstream unavailable")
	ErrBadStatus   = errors.New("upstream bad status")
	ErrDecode      = errors.New("upstream decode failed")
)

const (
	outcomeOK          = "ok"
	outcomeUnavailable = "unavailable"
	outcomeBadStatus   = "bad_status"
	outcomeDecode      = "decode"
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_upstream_requests_total",
				Help: "Vendor API requests by outcome",
			},
			[]string{"vendor", "outcome"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "catalog_upstream_request_duration_seconds",
				Help: "Vendor API latency",
			},
			[]string{"vendor"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Requests, m.Latency)
	}
	return m
}

type Client struct {
	Vendor  string
	HTTP    *http.Client
	Log     *zap.Logger
	Metrics *Metrics
}

// New builds a client for one vendor. A zero timeout leaves requests bounded
// only by their context.
func New(vendor string, timeout time.Duration, log *zap.Logger, m *Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		Vendor:  vendor,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log.With(zap.String("vendor", vendor)),
		Metrics: m,
	}
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	start := time.Now()
	outcome, err := c.getJSON(ctx, url, out)
	c.observe(outcome, time.Since(start))

	if err != nil {
		c.Log.Error("upstream request failed", zap.String("url", url), zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return outcomeUnavailable, fmt.Errorf("%s: build request: %w", c.Vendor, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return outcomeUnavailable, fmt.Errorf("%s: %w: %w", c.Vendor, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeBadStatus, fmt.Errorf("%s: %w: status=%d", c.Vendor, ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return outcomeDecode, fmt.Errorf("%s: %w: %w", c.Vendor, ErrDecode, err)
	}
	return outcomeOK, nil
}

func (c *Client) observe(outcome string, d time.Duration) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.Requests.WithLabelValues(c.Vendor, outcome).Inc()
	c.Metrics.Latency.WithLabelValues(c.Vendor).Observe(d.Seconds())
}
