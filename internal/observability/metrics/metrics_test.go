package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("document_type", "invoice"),
		attribute.String("document_number", "ACME/2026/INV/0001"),
		attribute.String("client_id", "456"),
		attribute.String("tax_protocol", "GST"),
	)
	keys := make([]attribute.Key, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, attr.Key)
	}
	assert.ElementsMatch(t, []attribute.Key{"document_type", "tax_protocol"}, keys)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordComputation(context.Background(), "invoice", "GST")
		m.RecordTransition(context.Background(), "draft", "sent")
	})
}

func TestNoopMetricsRecord(t *testing.T) {
	m := NewNoop()
	assert.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordNumberAllocated(context.Background(), "invoice", "database")
		m.RecordRejectedTransition(context.Background(), "send", "paid")
	})
}
