package restyutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	tracer    trace.Tracer
	idcounter *uint64
}

// InstrumentClient opens a span for every request made by the client.
// `tracer` can be nil, it will default to a library name of "resty".
// `output` can also be nil, if it is not, every exchange is written to it.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type messageIdKeyType int

var messageIdKey messageIdKeyType

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
	messageId := fmt.Sprintf("%04d-%s.txt", atomic.AddUint64(i.idcounter, 1), req.Method)
	ctx = context.WithValue(ctx, messageIdKey, messageId)
	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	if i.output == nil || res.Request.RawRequest == nil {
		return nil
	}
	messageId, ok := ctx.Value(messageIdKey).(string)
	if !ok {
		return nil
	}
	i.output.Write(messageId, formatHttpMessage(res))
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
