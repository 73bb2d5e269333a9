package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder installs a recording tracer provider for the test
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)
	invoiceID := uuid.New()

	ctx, span := StartSpan(context.Background(), "invoice", "create",
		SpanAttrInvoiceID, invoiceID,
		SpanAttrItemCount, 3,
		"paid", true,
	)
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "invoice.create", spans[0].Name())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, invoiceID.String(), attrs[SpanAttrInvoiceID].AsString())
	assert.Equal(t, int64(3), attrs[SpanAttrItemCount].AsInt64())
	assert.True(t, attrs["paid"].AsBool())
}

func TestSetAttributes_SkipsBadPairs(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "product", "search")
	SetAttributes(span, SpanAttrQuery, "milk", 42, "ignored", "dangling")
	span.End()

	attrs := attrMap(recorder.Ended()[0].Attributes())
	assert.Len(t, attrs, 1)
	assert.Equal(t, "milk", attrs[SpanAttrQuery].AsString())
}

func TestRecordError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "product", "enrich")
	RecordError(span, nil)
	RecordError(span, errors.New("lookup failed"))
	span.End()

	ended := recorder.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "lookup failed", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "product", "enrich")
	AddEvent(span, "cache_hit", SpanAttrBarcode, "3017620422003")
	span.End()

	events := recorder.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "cache_hit", events[0].Name)
	assert.Equal(t, "3017620422003", attrMap(events[0].Attributes)[SpanAttrBarcode].AsString())
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		RecordError(nil, errors.New("x"))
		AddEvent(nil, "e")
	})
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.FLOAT64, toAttribute("f", 1.5).Value.Type())
	assert.Equal(t, attribute.INT64, toAttribute("i", int64(7)).Value.Type())
	assert.Equal(t, attribute.STRINGSLICE, toAttribute("s", []string{"a"}).Value.Type())
	assert.Equal(t, "[1 2]", toAttribute("x", []int{1, 2}).Value.AsString())
}
