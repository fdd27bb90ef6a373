// Package fetch is the only place that talks to the upstream store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/product"
	"restockwatch/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("restockwatch.fetch")

const (
	report_client_fetch_product = "client.fetch-product"
	report_client_fetch_graphql = "client.fetch-graphql"
	report_client_fetch_variant = "client.fetch-variant"
)

// ErrGraphQLDisabled is returned by FetchGraphQL when no endpoint was configured.
var ErrGraphQLDisabled = errors.New("graphql endpoint not configured")

// Error is a transport level failure reaching the upstream, including non-2xx responses.
type Error struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s %s: status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Options struct {
	ProductURL string
	// VariantParam is the query parameter that selects a variant on the product page.
	VariantParam string
	GraphQLURL   string
	GraphQLQuery string
	// GraphQLVariables are sent as is, the product url is available to the query as $url.
	GraphQLVariables map[string]any
	Timeout          time.Duration
	// MinDelay is the minimum spacing between any two requests to the upstream,
	// page, graphql and variant probes share it. Zero disables pacing.
	MinDelay time.Duration
	// Headers are added on top of (and override) the default browser header set.
	Headers map[string]string
	// Dump receives every raw exchange with the upstream when set.
	Dump restyutil.InstrumentOutput
}

// Client fetches the raw product payloads, it does not interpret them.
type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API
}

var browserHeaders = map[string]string{
	"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7",
	"accept-language": "en-US,en;q=0.9",
	"cache-control":   "no-cache",
	"pragma":          "no-cache",
	"sec-fetch-dest":  "document",
	"sec-fetch-mode":  "navigate",
	"sec-fetch-site":  "none",
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fetch", tel)

	parsed, err := url.Parse(opts.ProductURL)
	if err != nil {
		return nil, fmt.Errorf("parse product url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("product url %q is not absolute", opts.ProductURL)
	}
	if opts.VariantParam == "" {
		opts.VariantParam = "color"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeaders(browserHeaders)
	httpClient.SetHeaders(opts.Headers)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	limit := rate.Inf
	if opts.MinDelay > 0 {
		limit = rate.Every(opts.MinDelay)
	}
	// a burst of 1 keeps every request at least MinDelay apart
	limiter := rate.NewLimiter(limit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, tracer, opts.Dump)

	return &Client{http: httpClient, opts: opts, tel: tel}, nil
}

func (c *Client) get(ctx context.Context, op, link string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, &Error{Op: op, URL: link, Err: err}
	}
	if res.IsError() {
		return nil, &Error{Op: op, URL: link, Status: res.StatusCode()}
	}
	return res.Body(), nil
}

// FetchProduct retrieves the product page.
func (c *Client) FetchProduct(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, "product", c.opts.ProductURL)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_product, err)
		return nil, err
	}
	return body, nil
}

// VariantURL is the product url with the variant selection query parameter set.
func (c *Client) VariantURL(id product.VariantID) string {
	parsed, err := url.Parse(c.opts.ProductURL)
	if err != nil {
		// validated in NewClient
		panic(err)
	}
	query := parsed.Query()
	query.Set(c.opts.VariantParam, string(id))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// FetchVariant retrieves the product page with a single variant selected.
func (c *Client) FetchVariant(ctx context.Context, id product.VariantID) ([]byte, error) {
	link := c.VariantURL(id)
	body, err := c.get(ctx, "variant", link)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_variant, err, string(id))
		return nil, err
	}
	return body, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// FetchGraphQL posts the configured query, it returns ErrGraphQLDisabled if
// no endpoint was configured.
func (c *Client) FetchGraphQL(ctx context.Context) ([]byte, error) {
	if c.opts.GraphQLURL == "" || c.opts.GraphQLQuery == "" {
		return nil, ErrGraphQLDisabled
	}

	variables := map[string]any{"url": c.opts.ProductURL}
	for k, v := range c.opts.GraphQLVariables {
		variables[k] = v
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetHeader("accept", "application/json").
		SetBody(graphqlRequest{
			Query:     c.opts.GraphQLQuery,
			Variables: variables,
		}).
		Post(c.opts.GraphQLURL)
	if err != nil {
		err = &Error{Op: "graphql", URL: c.opts.GraphQLURL, Err: err}
		c.tel.ReportBroken(report_client_fetch_graphql, err)
		return nil, err
	}
	if res.IsError() {
		err = &Error{Op: "graphql", URL: c.opts.GraphQLURL, Status: res.StatusCode()}
		c.tel.ReportBroken(report_client_fetch_graphql, err)
		return nil, err
	}
	return res.Body(), nil
}
