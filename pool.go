package streamsearch

import (
	"io"
	"sync"
)

// ScannerPool is a pool of Scanner instances for reuse in high-throughput scenarios.
// All scanners share one precompiled Needle.
type ScannerPool struct {
	pool   sync.Pool
	needle *Needle
	opts   []Option
}

// NewScannerPool creates a new ScannerPool for needle with the given options.
// All scanners created from this pool will use these options.
func NewScannerPool(needle []byte, opts ...Option) (*ScannerPool, error) {
	n, err := NewNeedle(needle)
	if err != nil {
		return nil, err
	}

	// Validate options by creating a test scanner
	if _, err := NewScanner(n, func(bool, []byte) error { return nil }, opts...); err != nil {
		return nil, err
	}

	return &ScannerPool{
		needle: n,
		opts:   opts,
	}, nil
}

// Get retrieves a Scanner from the pool, or creates a new one if the pool is empty.
// The scanner reports to emit and starts with an empty lookbehind.
func (p *ScannerPool) Get(emit EmitFunc) (*Scanner, error) {
	if emit == nil {
		return nil, ErrNilEmitFunc
	}

	if v := p.pool.Get(); v != nil {
		scanner := v.(*Scanner)
		scanner.Reset()
		scanner.emit = emit

		return scanner, nil
	}

	return NewScanner(p.needle, emit, p.opts...)
}

// Put returns a Scanner to the pool for reuse.
// The scanner should not be used after being returned to the pool.
func (p *ScannerPool) Put(s *Scanner) {
	// Clear the callback to avoid holding references
	s.emit = nil
	p.pool.Put(s)
}

// Needle returns the needle shared by the pooled scanners.
func (p *ScannerPool) Needle() *Needle {
	return p.needle
}

// StreamPool is a pool of Stream instances for reuse.
type StreamPool struct {
	pool   sync.Pool
	needle *Needle
	opts   []Option
}

// NewStreamPool creates a new StreamPool for needle with the given options.
// All streams created from this pool will use these options.
func NewStreamPool(needle []byte, opts ...Option) (*StreamPool, error) {
	n, err := NewNeedle(needle)
	if err != nil {
		return nil, err
	}

	// Validate options by creating a test stream
	if _, err := newStream(nil, n, opts); err != nil {
		return nil, err
	}

	return &StreamPool{
		needle: n,
		opts:   opts,
	}, nil
}

// Get retrieves a Stream from the pool, or creates a new one if the pool is empty.
// The stream is configured with the given reader and ready to use.
func (p *StreamPool) Get(r io.Reader) (*Stream, error) {
	if v := p.pool.Get(); v != nil {
		stream := v.(*Stream)
		stream.Reset(r)

		return stream, nil
	}

	return newStream(r, p.needle, p.opts)
}

// Put returns a Stream to the pool for reuse.
// The stream should not be used after being returned to the pool.
func (p *StreamPool) Put(s *Stream) {
	// Clear the reader to avoid holding references
	s.reader = nil
	p.pool.Put(s)
}
