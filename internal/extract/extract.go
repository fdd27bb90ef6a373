// Package extract turns raw product payloads into a product.Record by trying an
// ordered list of strategies.
package extract

import (
	"context"
	"fmt"
	"strings"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/product"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("restockwatch.extract")

const report_extractor_extract = "extractor.extract"

const StageNoStrategyMatched = "no-strategy-matched"

// Error is returned when no strategy could find a non-empty variant list.
type Error struct {
	Stage string
	// Tried lists the strategies attempted, in order.
	Tried []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: %s (tried %s)", e.Stage, strings.Join(e.Tried, ", "))
}

type Extractor struct {
	strategies []Strategy
	tel        telemetry.API
}

// New creates an extractor, no strategies means DefaultStrategies.
func New(tel telemetry.API, strategies ...Strategy) Extractor {
	assert.NotNil(tel)
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return Extractor{
		strategies: strategies,
		tel:        telemetry.NewScopedAPI("extract", tel),
	}
}

func (e Extractor) Extract(ctx context.Context, raw []byte) (product.Record, error) {
	return e.ExtractPayload(ctx, NewPayload(raw))
}

// ExtractPayload tries every strategy in order and returns the record of the first
// one that matches.
func (e Extractor) ExtractPayload(ctx context.Context, payload *Payload) (product.Record, error) {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	tried := make([]string, 0, len(e.strategies))
	for _, strategy := range e.strategies {
		tried = append(tried, strategy.Name)

		record, ok := strategy.Extract(payload)
		if !ok || len(record.Variants) == 0 {
			continue
		}
		record.Source = strategy.Name

		span.SetAttributes(
			attribute.String("source", strategy.Name),
			attribute.Int("variants", len(record.Variants)),
		)
		e.tel.ReportDebug("extracted product", strategy.Name, record.ProductID, len(record.Variants))
		return record, nil
	}

	err := &Error{Stage: StageNoStrategyMatched, Tried: tried}
	span.RecordError(err)
	span.SetStatus(codes.Error, "no strategy matched")
	e.tel.ReportWarning(report_extractor_extract, err, telemetry.KV{Key: "payload_bytes", Value: len(payload.Raw())})
	return product.Record{}, err
}
