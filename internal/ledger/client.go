// Package ledger implements the submission gateway to the authoritative sales
// ledger service.
//
// A submission is a single request/response exchange with three terminal
// outcomes: accepted (a Receipt), rejected (a *RejectedError carrying the
// service's reason verbatim) and unreachable (an error matching
// ErrUnreachable). The client never retries; whether an unreachable attempt
// was persisted is unknown to it.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/counter-pos/internal/domain/sale"
)

const (
	submitPath      = "/api/sales/create"
	maxResponseSize = 1 << 20
)

// ErrUnreachable is matched by errors for submissions that got no response.
var ErrUnreachable = errors.New("ledger service unreachable")

// RejectedError is returned when the ledger answers but refuses the order.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ledger rejected order: %s", e.Reason)
}

var _ sale.Gateway = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// BaseURL of the ledger service, e.g. http://localhost:5000.
	BaseURL string
	// Token is sent verbatim in the Authorization header when non-empty.
	Token string
	// Timeout bounds a single exchange. Zero means no client-side limit.
	Timeout time.Duration

	// HTTPClient overrides the instrumented default client.
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client submits orders to the ledger over HTTP.
type Client struct {
	endpoint    string
	token       string
	http        *http.Client
	submissions metric.Int64Counter
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse ledger url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("ledger url %q must be absolute", opts.BaseURL)
	}

	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(opts.TracerProvider),
				otelhttp.WithMeterProvider(opts.MeterProvider),
			),
			Timeout: opts.Timeout,
		}
	}

	submissions, err := opts.MeterProvider.
		Meter("github.com/xenking/counter-pos/internal/ledger").
		Int64Counter("ledger.submissions",
			metric.WithDescription("Order submissions by outcome"),
		)
	if err != nil {
		return nil, errors.Wrap(err, "create submissions counter")
	}

	return &Client{
		endpoint:    base.String() + submitPath,
		token:       opts.Token,
		http:        httpClient,
		submissions: submissions,
	}, nil
}

// Submit posts the order once and interprets the response.
func (c *Client) Submit(ctx context.Context, o *sale.Order) (*sale.Receipt, error) {
	body := encodeOrder(o)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", o.Reference.String())
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(ctx, "unreachable")
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.record(ctx, "unreachable")
		return nil, fmt.Errorf("%w: read response: %w", ErrUnreachable, err)
	}

	// Only 201 Created confirms the sale was recorded.
	r := decodeResponse(data)
	if resp.StatusCode != http.StatusCreated {
		c.record(ctx, "rejected")
		reason := r.Message
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &RejectedError{StatusCode: resp.StatusCode, Reason: reason}
	}

	c.record(ctx, "accepted")
	return &sale.Receipt{
		Reference: o.Reference,
		SaleID:    r.SaleID,
		Message:   r.Message,
	}, nil
}

func (c *Client) record(ctx context.Context, outcome string) {
	c.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
