// Package ikro fetches the IKRO catalog: a paginated regulator listing plus
// per-item detail and application lookups.
package ikro

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PartsHub/internal/record"
	"PartsHub/internal/upstream"
)

const (
	Vendor = "ikro"

	DefaultBaseURL  = "https://adm.ikro.com.br/api"
	DefaultPageSize = 100

	regulatorLine = "REGULADORES DE TENSÃO"
)

type page struct {
	Data []record.Record `json:"data"`
	Meta struct {
		Pagination struct {
			PageCount int `json:"pageCount"`
		} `json:"pagination"`
	} `json:"meta"`
}

// DetailAndApplication is the combined per-item lookup.
type DetailAndApplication struct {
	Detail      []record.Record `json:"detail"`
	Application []record.Record `json:"application"`
}

type Client struct {
	BaseURL  string
	PageSize int
	API      *upstream.Client
}

func NewClient(baseURL string, pageSize int, api *upstream.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		PageSize: pageSize,
		API:      api,
	}
}

// FetchRegulators walks every page of the regulator listing in order. The
// page count is taken from the first response; any failing page fails the
// whole listing.
func (c *Client) FetchRegulators(ctx context.Context) ([]record.Record, error) {
	c.API.Log.Info("loading regulators")

	out := make([]record.Record, 0, c.PageSize)
	pageCount := 1

	for n := 1; n <= pageCount; n++ {
		var p page
		if err := c.API.GetJSON(ctx, c.regulatorsURL(n), &p); err != nil {
			return nil, err
		}

		out = append(out, p.Data...)

		if n == 1 && p.Meta.Pagination.PageCount > 0 {
			pageCount = p.Meta.Pagination.PageCount
		}
	}

	c.API.Log.Info("regulators loaded", zap.Int("items", len(out)), zap.Int("pages", pageCount))
	return out, nil
}

func (c *Client) regulatorsURL(n int) string {
	q := url.Values{}
	q.Set("filters[descr_linha][$eq]", regulatorLine)
	q.Set("pagination[page]", strconv.Itoa(n))
	q.Set("pagination[pageSize]", strconv.Itoa(c.PageSize))
	q.Set("populate", "imagem")
	return c.BaseURL + "/produtos?" + q.Encode()
}

func (c *Client) FetchDetails(ctx context.Context, group, item string) ([]record.Record, error) {
	return c.fetchByItem(ctx, "/produto-conjuntos", group, item)
}

func (c *Client) FetchApplication(ctx context.Context, group, item string) ([]record.Record, error) {
	return c.fetchByItem(ctx, "/aplicacao-produtos", group, item)
}

func (c *Client) fetchByItem(ctx context.Context, path, group, item string) ([]record.Record, error) {
	q := url.Values{}
	q.Set("filters[wpro_grupo][$eq]", group)
	q.Set("filters[wpro_item][$eq]", item)

	var p page
	if err := c.API.GetJSON(ctx, c.BaseURL+path+"?"+q.Encode(), &p); err != nil {
		return nil, err
	}
	if p.Data == nil {
		return []record.Record{}, nil
	}
	return p.Data, nil
}

// FetchDetailAndApplication runs both lookups concurrently. If either fails
// the other is cancelled and no partial result is returned.
func (c *Client) FetchDetailAndApplication(ctx context.Context, group, item string) (DetailAndApplication, error) {
	c.API.Log.Info("loading detail and application", zap.String("grupo", group), zap.String("item", item))

	var out DetailAndApplication
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d, err := c.FetchDetails(gctx, group, item)
		out.Detail = d
		return err
	})
	g.Go(func() error {
		a, err := c.FetchApplication(gctx, group, item)
		out.Application = a
		return err
	})

	if err := g.Wait(); err != nil {
		return DetailAndApplication{}, err
	}
	return out, nil
}
