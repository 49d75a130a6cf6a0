// Package catalogapi fetches catalog snapshots from the external catalog
// service over HTTP.
package catalogapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

const (
	productsPath    = "/api/product/all"
	combosPath      = "/api/combo/all"
	maxResponseSize = 8 << 20
)

var _ catalog.Source = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is sent verbatim in the Authorization header when non-empty.
	Token          string
	Timeout        time.Duration
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
}

// Client reads products and combos from the catalog service. Every call to
// Snapshot fetches fresh data; nothing is cached.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("catalog url %q must be absolute", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var topts []otelhttp.Option
		if opts.TracerProvider != nil {
			topts = append(topts, otelhttp.WithTracerProvider(opts.TracerProvider))
		}
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, topts...),
			Timeout:   opts.Timeout,
		}
	}

	return &Client{
		base:  base.String(),
		token: opts.Token,
		http:  httpClient,
	}, nil
}

// Snapshot fetches products and combos concurrently and builds a snapshot.
func (c *Client) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	var (
		products []catalog.Product
		combos   []catalog.Combo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := c.get(gctx, productsPath)
		if err != nil {
			return err
		}
		if products, err = decodeProducts(data); err != nil {
			return errors.Wrap(err, "decode products")
		}
		return nil
	})
	g.Go(func() error {
		data, err := c.get(gctx, combosPath)
		if err != nil {
			return err
		}
		if combos, err = decodeCombos(data); err != nil {
			return errors.Wrap(err, "decode combos")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap, err := catalog.NewSnapshot(products, combos)
	if err != nil {
		return nil, errors.Wrap(err, "build snapshot")
	}
	return snap, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}
