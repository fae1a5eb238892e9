package streamsearch

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Writer is an io.WriteCloser that scans everything written to it and
// reports the results to an EmitFunc. Close flushes the held-back bytes.
//
// Once the match limit is reached, the remainder of every write is passed to
// the EmitFunc as unmatched data.
type Writer struct {
	scanner *Scanner
	emit    EmitFunc
	matches int
	capped  bool

	logger *slog.Logger
	inst   instruments
	attrs  metric.MeasurementOption
}

// NewWriter creates a Writer that searches for needle and reports to emit.
func NewWriter(needle []byte, emit EmitFunc, opts ...Option) (*Writer, error) {
	n, err := NewNeedle(needle)
	if err != nil {
		return nil, err
	}

	if emit == nil {
		return nil, ErrNilEmitFunc
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	w := &Writer{emit: emit}

	w.scanner, err = newScannerWithConfig(n, w.count, &cfg)
	if err != nil {
		return nil, err
	}

	w.inst, err = newInstruments(cfg.meterProvider)
	if err != nil {
		return nil, err
	}

	w.logger = cfg.logger.With("needle_len", n.Len())
	w.attrs = metric.WithAttributes(attribute.Int("needle.length", n.Len()))

	return w, nil
}

func (w *Writer) count(matched bool, data []byte) error {
	if matched {
		w.matches++
	}

	return w.emit(matched, data)
}

// Write scans p. It returns ErrDestroyed after Close.
func (w *Writer) Write(p []byte) (int, error) {
	before := w.matches

	n, err := w.scanner.Push(p)
	if err != nil {
		return n, err
	}

	if n < len(p) {
		if !w.capped {
			w.capped = true
			w.logger.Debug("match limit reached, passing remaining input through", "matches", w.matches)
		}

		if err := w.emit(false, p[n:]); err != nil {
			return n, err
		}
	}

	w.inst.record(context.Background(), len(p), w.matches-before, w.attrs)

	return len(p), nil
}

// Close reports any held-back bytes. Further writes fail with ErrDestroyed.
func (w *Writer) Close() error {
	return w.scanner.Destroy()
}

// Matches returns the number of needle occurrences found so far.
func (w *Writer) Matches() int {
	return w.matches
}
