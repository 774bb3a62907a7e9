// Package notus fetches the NOTUS product feed, a single flat JSON array.
package notus

import (
	"context"

	"go.uber.org/zap"

	"PartsHub/internal/record"
	"PartsHub/internal/upstream"
)

const (
	Vendor = "notus"

	DefaultURL = "https://catalogo.notus.ind.br/conversor/produtos.json"
)

type Client struct {
	URL string
	API *upstream.Client
}

func NewClient(feedURL string, api *upstream.Client) *Client {
	if feedURL == "" {
		feedURL = DefaultURL
	}
	return &Client{URL: feedURL, API: api}
}

func (c *Client) FetchProducts(ctx context.Context) ([]record.Record, error) {
	c.API.Log.Info("loading products")

	var out []record.Record
	if err := c.API.GetJSON(ctx, c.URL, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []record.Record{}
	}

	c.API.Log.Info("products loaded", zap.Int("items", len(out)))
	return out, nil
}
