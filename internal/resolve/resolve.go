// Package resolve settles the availability of variants the extractor could not
// determine by probing their variant scoped page.
package resolve

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/extract"
	"restockwatch/internal/product"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("restockwatch.resolve")

const (
	report_resolver_probe    = "resolver.probe"
	report_resolver_probes   = "resolver.probes"
	report_resolver_resolved = "resolver.resolved"
)

// Prober fetches the payload of a single variant, *fetch.Client implements it.
type Prober interface {
	FetchVariant(ctx context.Context, id product.VariantID) ([]byte, error)
}

// ProbeError is a failed probe. It never aborts resolution, the variant stays Unknown.
type ProbeError struct {
	VariantID product.VariantID
	Err       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe variant %s: %v", e.VariantID, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

type Options struct {
	// MinDelay is the minimum spacing between two probe requests, zero disables pacing.
	// Leave it zero when the prober already paces its requests.
	MinDelay time.Duration
	// Timeout bounds a single probe.
	Timeout     time.Duration
	Concurrency int
}

const (
	defaultProbeTimeout     = 20 * time.Second
	defaultProbeConcurrency = 2
)

type Resolver struct {
	prober      Prober
	opts        Options
	classifiers []Classifier
	limiter     *rate.Limiter
	tel         telemetry.API
}

// New creates a resolver, no classifiers means DefaultClassifiers. The pacing
// budget is shared by every Resolve call made on the returned resolver.
func New(prober Prober, opts Options, tel telemetry.API, classifiers ...Classifier) *Resolver {
	assert.NotNil(prober)
	assert.NotNil(tel)

	if opts.Timeout <= 0 {
		opts.Timeout = defaultProbeTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultProbeConcurrency
	}
	if len(classifiers) == 0 {
		classifiers = DefaultClassifiers()
	}

	limit := rate.Inf
	if opts.MinDelay > 0 {
		limit = rate.Every(opts.MinDelay)
	}

	return &Resolver{
		prober:      prober,
		opts:        opts,
		classifiers: classifiers,
		// a burst of 1 turns the limiter into a minimum spacing between requests
		limiter: rate.NewLimiter(limit, 1),
		tel:     telemetry.NewScopedAPI("resolve", tel),
	}
}

// Resolve returns a copy of the record where every Unknown variant has been
// probed once. Variants with a known availability are passed through without
// a request.
func (r *Resolver) Resolve(ctx context.Context, record product.Record) product.Record {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	variants := slices.Clone(record.Variants)

	var probed, settled atomic.Int64
	group := errgroup.Group{}
	group.SetLimit(r.opts.Concurrency)
	for i, v := range variants {
		if v.Availability.Known() {
			continue
		}
		group.Go(func() error {
			probed.Add(1)
			availability, err := r.probe(ctx, v.ID)
			if err != nil {
				r.tel.ReportWarning(report_resolver_probe, err)
			}
			if availability.Known() {
				settled.Add(1)
			}
			// each goroutine owns its index
			variants[i] = v.WithAvailability(availability)
			return nil
		})
	}
	_ = group.Wait()

	span.SetAttributes(
		attribute.Int64("probed", probed.Load()),
		attribute.Int64("settled", settled.Load()),
	)
	r.tel.ReportCount(report_resolver_probes, probed.Load())
	r.tel.ReportCount(report_resolver_resolved, settled.Load())

	return record.WithVariants(variants)
}

func (r *Resolver) probe(ctx context.Context, id product.VariantID) (product.Availability, error) {
	err := r.limiter.Wait(ctx)
	if err != nil {
		return product.Unknown, &ProbeError{VariantID: id, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	body, err := r.prober.FetchVariant(ctx, id)
	if err != nil {
		return product.Unknown, &ProbeError{VariantID: id, Err: err}
	}

	availability, classifier := Classify(r.classifiers, Probe{
		VariantID: id,
		Payload:   extract.NewPayload(body),
	})
	r.tel.ReportDebug(
		"classified probe",
		telemetry.KV{Key: "variant", Value: id},
		telemetry.KV{Key: "availability", Value: availability},
		telemetry.KV{Key: "classifier", Value: classifier},
	)
	return availability, nil
}
