package streamsearch

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Segment is one result of a Stream.
type Segment struct {
	Offset uint64 // Absolute offset of Data in the stream
	Data   []byte // Unmatched bytes (points into internal buffer)
	Match  bool   // Data is immediately followed by a needle occurrence
}

// span locates a pending segment inside Stream.arena.
type span struct {
	start, end int
	match      bool
}

// Stream provides a convenient streaming API around Scanner.
// It wraps an io.Reader and returns segments via the Next() method.
//
// The concatenation of all segments, with the needle inserted after every
// segment whose Match is true, reproduces the input.
type Stream struct {
	scanner *Scanner
	reader  io.Reader

	buf     []byte // Read buffer
	arena   []byte // Segment data for the current read
	pending []span
	next    int // Index of the next pending segment

	offset  uint64 // Absolute offset of the next segment
	matches int
	capped  bool // Match limit reached
	eof     bool // Reader exhausted
	done    bool // Lookbehind flushed

	logger *slog.Logger
	inst   instruments
	attrs  metric.MeasurementOption
}

// NewStream creates a Stream that searches r for needle.
func NewStream(r io.Reader, needle []byte, opts ...Option) (*Stream, error) {
	n, err := NewNeedle(needle)
	if err != nil {
		return nil, err
	}

	return newStream(r, n, opts)
}

func newStream(r io.Reader, n *Needle, opts []Option) (*Stream, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &Stream{reader: r}

	s.scanner, err = newScannerWithConfig(n, s.collect, &cfg)
	if err != nil {
		return nil, err
	}

	s.inst, err = newInstruments(cfg.meterProvider)
	if err != nil {
		return nil, err
	}

	s.buf = make([]byte, cfg.bufferSize)
	s.logger = cfg.logger.With("needle_len", n.Len())
	s.attrs = metric.WithAttributes(attribute.Int("needle.length", n.Len()))

	return s, nil
}

// collect is the scanner's emit callback. Lookbehind data is overwritten by
// later pushes, so everything is copied into the arena.
func (s *Stream) collect(matched bool, data []byte) error {
	if !matched && len(data) == 0 {
		return nil
	}

	if matched {
		s.matches++
	}

	start := len(s.arena)
	s.arena = append(s.arena, data...)
	s.pending = append(s.pending, span{start: start, end: len(s.arena), match: matched})

	return nil
}

// fill reads the next buffer from the reader and scans it.
func (s *Stream) fill() error {
	s.arena = s.arena[:0]
	s.pending = s.pending[:0]
	s.next = 0

	if s.eof {
		return s.flush()
	}

	n, readErr := io.ReadFull(s.reader, s.buf)
	if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
		s.eof = true
		readErr = nil
	}

	// Bytes read before an error are scanned first so a retried Next
	// continues without a gap.
	if n > 0 {
		if err := s.push(s.buf[:n]); err != nil {
			return err
		}
	}

	if readErr != nil {
		return readErr
	}

	if s.eof {
		return s.flush()
	}

	return nil
}

func (s *Stream) push(chunk []byte) error {
	before := s.matches

	consumed, err := s.scanner.Push(chunk)
	if err != nil {
		return err
	}

	if consumed < len(chunk) {
		if !s.capped {
			s.capped = true
			s.logger.Debug("match limit reached, passing remaining input through",
				"matches", s.matches, "offset", s.offset)
		}

		if err := s.collect(false, chunk[consumed:]); err != nil {
			return err
		}
	}

	s.inst.record(context.Background(), len(chunk), s.matches-before, s.attrs)

	return nil
}

func (s *Stream) flush() error {
	if s.done {
		return nil
	}

	pending := s.scanner.Pending()
	if err := s.scanner.Destroy(); err != nil {
		return err
	}

	s.done = true
	s.logger.Debug("stream exhausted", "matches", s.matches, "flushed", pending)

	return nil
}

// Next returns the next segment from the stream.
// Returns io.EOF when the stream is exhausted. Other reader errors are
// returned unchanged; segments for bytes read before the error are still
// delivered by later calls.
//
// The returned Segment.Data slice is valid until the next call to Next().
// If you need to keep the data, copy it to your own buffer.
func (s *Stream) Next() (Segment, error) {
	for s.next >= len(s.pending) {
		if s.done {
			return Segment{}, io.EOF
		}

		if err := s.fill(); err != nil {
			return Segment{}, err
		}
	}

	sp := s.pending[s.next]
	s.next++

	seg := Segment{
		Offset: s.offset,
		Data:   s.arena[sp.start:sp.end],
		Match:  sp.match,
	}

	s.offset += uint64(sp.end - sp.start) //nolint:gosec // G115
	if sp.match {
		s.offset += uint64(s.scanner.Needle().Len()) //nolint:gosec // G115
	}

	return seg, nil
}

// Reset resets the stream to start processing a new reader.
// The reader is replaced with the provided one, and all state is cleared.
func (s *Stream) Reset(r io.Reader) {
	s.reader = r
	s.scanner.Reset()
	s.arena = s.arena[:0]
	s.pending = s.pending[:0]
	s.next = 0
	s.offset = 0
	s.matches = 0
	s.capped = false
	s.eof = false
	s.done = false
}

// Offset returns the absolute offset in the stream of the next segment.
func (s *Stream) Offset() uint64 {
	return s.offset
}

// Matches returns the number of needle occurrences found so far.
func (s *Stream) Matches() int {
	return s.matches
}

// Needle returns the needle the stream searches for.
func (s *Stream) Needle() *Needle {
	return s.scanner.Needle()
}
