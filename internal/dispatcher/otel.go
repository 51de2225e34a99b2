package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/monreader/extension/internal/dispatcher"

// metrics exports queue depth and per-command handled/dropped counts.
type metrics struct {
	processed metric.Int64Counter
	drops     metric.Int64Counter
}

func newMetrics(queues func() map[string]int) (*metrics, error) {
	m := otel.Meter(instrumentationName)

	queueSize, err := m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in each buffered command's queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range queues() {
			o.ObserveInt64(queueSize, int64(n), commandAttr(cmd))
		}
		return nil
	}, queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	out := &metrics{}
	out.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Buffered events handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	out.drops, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Buffered events dropped or evicted from a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return out, nil
}

func commandAttr(cmd string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", cmd))
}

func (m *metrics) handled(cmd string) {
	m.processed.Add(context.Background(), 1, commandAttr(cmd))
}

func (m *metrics) dropped(cmd string) {
	m.drops.Add(context.Background(), 1, commandAttr(cmd))
}
