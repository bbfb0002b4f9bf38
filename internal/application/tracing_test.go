package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/abdidvp/ordersvc/internal/application"
)

func newRecordingTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func attrs(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	m := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestOrderService_PlaceOrderSpan(t *testing.T) {
	exporter, tp := newRecordingTracer(t)
	svc := application.NewOrderService(exampleStore(), application.WithTracer(tp.Tracer("test")))

	order, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "2"), ri("P2", "1")))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "place_order", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	a := attrs(spans[0])
	assert.Equal(t, "C1", a["order.customer_id"].AsString())
	assert.Equal(t, int64(2), a["order.item_count"].AsInt64())
	assert.Equal(t, order.ID, a["order.id"].AsString())
}

func TestOrderService_RejectedSpanRecordsKind(t *testing.T) {
	exporter, tp := newRecordingTracer(t)
	svc := application.NewOrderService(exampleStore(), application.WithTracer(tp.Tracer("test")))

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P2", "5")))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "InsufficientStock", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
