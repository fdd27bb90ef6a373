// Package monitor runs a single restock check: fetch, extract, resolve, diff,
// notify and commit.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/chrono"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/extract"
	"restockwatch/internal/fetch"
	"restockwatch/internal/notify"
	"restockwatch/internal/product"
	"restockwatch/internal/restock"
	"restockwatch/internal/snapshot"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("restockwatch.monitor")
var meter = otel.Meter("restockwatch.monitor")

var cycleCounter, _ = meter.Int64Counter("restockwatch.cycles")
var restockCounter, _ = meter.Int64Counter("restockwatch.restock_events")

const (
	report_monitor_graphql   = "monitor.graphql"
	report_monitor_tracked   = "monitor.tracked"
	report_monitor_notify    = "monitor.notify"
	report_monitor_history   = "monitor.history"
	report_monitor_variants  = "monitor.variants"
	report_monitor_restocked = "monitor.restocked"
)

// Fetcher retrieves the raw product payloads, *fetch.Client implements it.
type Fetcher interface {
	FetchProduct(ctx context.Context) ([]byte, error)
	FetchGraphQL(ctx context.Context) ([]byte, error)
}

type Resolver interface {
	Resolve(ctx context.Context, record product.Record) product.Record
}

// History keeps the restock events, snapshot.DB implements it.
type History interface {
	RecordRestocks(ctx context.Context, events []restock.Event) error
}

type Options struct {
	ProductURL string
	Tracker    Tracker
	// SummaryEvery sends an inventory summary every n committed cycles, 0 disables it.
	// A summary is always sent after the baseline cycle.
	SummaryEvery int
}

// Result is the outcome of one cycle.
type Result struct {
	ID       string
	Record   product.Record
	Snapshot product.Snapshot
	Events   []restock.Event
	// Baseline is true when there was no committed snapshot to diff against.
	Baseline   bool
	Unmatched  []string
	StartedAt  time.Time
	FinishedAt time.Time
}

type Monitor struct {
	fetcher    Fetcher
	extractor  extract.Extractor
	resolver   Resolver
	store      *snapshot.Store
	dispatcher notify.Dispatcher
	history    History
	time       chrono.TimeAPI
	opts       Options
	tel        telemetry.API

	cycles atomic.Int64
	last   atomic.Pointer[Result]
}

type Dependencies struct {
	Fetcher    Fetcher
	Extractor  extract.Extractor
	Resolver   Resolver
	Store      *snapshot.Store
	Dispatcher notify.Dispatcher
	// History is optional.
	History History
	Time    chrono.TimeAPI
}

func New(deps Dependencies, opts Options, tel telemetry.API) *Monitor {
	assert.NotNil(deps.Fetcher)
	assert.NotNil(deps.Resolver)
	assert.NotNil(deps.Store)
	assert.NotNil(deps.Dispatcher)
	assert.NotNil(deps.Time)
	assert.NotNil(tel)

	return &Monitor{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		resolver:   deps.Resolver,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		history:    deps.History,
		time:       deps.Time,
		opts:       opts,
		tel:        telemetry.NewScopedAPI("monitor", tel),
	}
}

// Store exposes the committed snapshot to readers such as the console commands.
func (m *Monitor) Store() *snapshot.Store {
	return m.store
}

// Last returns the result of the last committed cycle.
func (m *Monitor) Last() (Result, bool) {
	last := m.last.Load()
	if last == nil {
		return Result{}, false
	}
	return *last, true
}

// Cycles is the number of committed cycles since startup.
func (m *Monitor) Cycles() int64 {
	return m.cycles.Load()
}

// RunCycle performs a full cycle. A returned error means the cycle was aborted
// before anything was committed, notification failures are only reported.
func (m *Monitor) RunCycle(ctx context.Context) (Result, error) {
	return m.run(ctx, false)
}

// Check performs a cycle without notifying, recording history or committing.
// The diff is still computed against the committed snapshot.
func (m *Monitor) Check(ctx context.Context) (Result, error) {
	return m.run(ctx, true)
}

func cycleId() string {
	id, err := random.String(8)
	if err != nil {
		return "unknown"
	}
	return id
}

func (m *Monitor) run(ctx context.Context, dryRun bool) (Result, error) {
	result := Result{ID: cycleId(), StartedAt: m.time.Now()}

	ctx, span := tracer.Start(ctx, "Cycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("cycle_id", result.ID),
		attribute.Bool("dry_run", dryRun),
	)

	record, err := m.observe(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle aborted")
		cycleCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", false)))
		return result, fmt.Errorf("cycle %s: %w", result.ID, err)
	}

	record, result.Unmatched = m.opts.Tracker.Filter(record)
	if len(result.Unmatched) > 0 {
		m.tel.ReportWarning(report_monitor_tracked, "tracked variants not found", result.Unmatched)
	}

	record = m.resolver.Resolve(ctx, record)
	result.Record = record
	m.tel.ReportCount(report_monitor_variants, int64(len(record.Variants)))

	now := m.time.Now()
	current := product.SnapshotOf(now, record)
	previous, hasPrevious := m.store.Current()
	var previousPtr *product.Snapshot
	if hasPrevious {
		previousPtr = &previous
	}

	result.Snapshot = current
	result.Events = restock.Diff(previousPtr, current)
	result.Baseline = !hasPrevious
	result.FinishedAt = now
	span.SetAttributes(attribute.Int("restock_events", len(result.Events)))

	if dryRun {
		return result, nil
	}

	if len(result.Events) > 0 {
		m.tel.ReportCount(report_monitor_restocked, int64(len(result.Events)))
		restockCounter.Add(ctx, int64(len(result.Events)))

		m.send(ctx, notify.RestockAlert(record.Name, m.opts.ProductURL, result.Events))
		if m.history != nil {
			err := m.history.RecordRestocks(ctx, result.Events)
			if err != nil {
				m.tel.ReportBroken(report_monitor_history, err)
			}
		}
	}

	m.store.Commit(ctx, current)
	cycles := m.cycles.Add(1)
	m.last.Store(&result)
	cycleCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", true)))

	if result.Baseline || (m.opts.SummaryEvery > 0 && cycles%int64(m.opts.SummaryEvery) == 0) {
		m.send(ctx, notify.InventorySummary(record.Name, current))
	}

	m.tel.ReportDebug(
		"cycle committed",
		telemetry.KV{Key: "cycle_id", Value: result.ID},
		telemetry.KV{Key: "variants", Value: current.Len()},
		telemetry.KV{Key: "restocked", Value: len(result.Events)},
	)
	return result, nil
}

// observe fetches and extracts the product. The graphql endpoint is preferred
// when configured, any failure there falls back to the product page.
func (m *Monitor) observe(ctx context.Context) (product.Record, error) {
	body, err := m.fetcher.FetchGraphQL(ctx)
	switch {
	case err == nil:
		record, extractErr := m.extractor.Extract(ctx, body)
		if extractErr == nil {
			return record, nil
		}
		m.tel.ReportWarning(report_monitor_graphql, extractErr)
	case !errors.Is(err, fetch.ErrGraphQLDisabled):
		m.tel.ReportWarning(report_monitor_graphql, err)
	}

	body, err = m.fetcher.FetchProduct(ctx)
	if err != nil {
		return product.Record{}, err
	}
	return m.extractor.Extract(ctx, body)
}

func (m *Monitor) send(ctx context.Context, msg notify.Message) {
	err := m.dispatcher.Send(ctx, msg)
	if err != nil {
		m.tel.ReportBroken(report_monitor_notify, err, msg.Title)
	}
}
