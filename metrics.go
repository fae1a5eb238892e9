package streamsearch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments holds the counters recorded by Stream and Writer.
type instruments struct {
	bytes   metric.Int64Counter
	matches metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) (instruments, error) {
	meter := mp.Meter(meterName)

	scanned, err := meter.Int64Counter("streamsearch.bytes",
		metric.WithDescription("Bytes passed to the scanner"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating bytes counter: %w", err)
	}

	matches, err := meter.Int64Counter("streamsearch.matches",
		metric.WithDescription("Needle occurrences found"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating matches counter: %w", err)
	}

	return instruments{bytes: scanned, matches: matches}, nil
}

func (i instruments) record(ctx context.Context, n, matches int, attrs metric.MeasurementOption) {
	if n > 0 {
		i.bytes.Add(ctx, int64(n), attrs)
	}

	if matches > 0 {
		i.matches.Add(ctx, int64(matches), attrs)
	}
}
