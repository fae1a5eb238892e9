package streamsearch

import (
	"bytes"
	"fmt"
)

// EmitFunc receives the results of a scan.
//
// When matched is false, data is a run of bytes that is known not to be part
// of a needle occurrence. When matched is true, one full needle occurrence has
// just been found and data holds the unmatched bytes that preceded it and were
// not reported yet; data is nil when there are none.
//
// data points into the pushed chunk or into the scanner's lookbehind buffer.
// It is only valid for the duration of the call and must be copied if needed
// afterwards. A non-nil error aborts the current Push or Destroy and is
// returned to its caller unchanged.
type EmitFunc func(matched bool, data []byte) error

// Scanner finds every non-overlapping occurrence of a needle in a stream that
// arrives as a sequence of chunks, using a Boyer-Moore-Horspool search that
// carries at most one needle length of bytes between chunks.
//
// A Scanner must not be used from multiple goroutines at once, and the emit
// callback must not call back into the Scanner.
type Scanner struct {
	needle *Needle
	emit   EmitFunc

	// Bytes from previous chunks that may still begin an occurrence.
	// lookbehind[:lookbehindSize] is always a proper prefix of the needle.
	lookbehind     []byte
	lookbehindSize int

	bufPos     int // Position in the current chunk up to which data was reported
	matches    int // Matches found since the last Reset
	maxMatches int
	destroyed  bool
}

// New creates a Scanner for needle that reports to emit.
func New(needle []byte, emit EmitFunc, opts ...Option) (*Scanner, error) {
	n, err := NewNeedle(needle)
	if err != nil {
		return nil, err
	}

	return NewScanner(n, emit, opts...)
}

// NewScanner creates a Scanner for a precompiled needle. The needle is shared,
// not copied, so one Needle can back any number of scanners.
func NewScanner(n *Needle, emit EmitFunc, opts ...Option) (*Scanner, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return newScannerWithConfig(n, emit, &cfg)
}

func newScannerWithConfig(n *Needle, emit EmitFunc, cfg *config) (*Scanner, error) {
	if n == nil {
		return nil, ErrNilNeedle
	}

	if emit == nil {
		return nil, ErrNilEmitFunc
	}

	if err := cfg.validate(n.Len()); err != nil {
		return nil, err
	}

	return &Scanner{
		needle:     n,
		emit:       emit,
		lookbehind: make([]byte, n.Len()),
		maxMatches: cfg.maxMatches,
	}, nil
}

// Push scans chunk and reports its contents through the emit callback.
//
// It returns the number of bytes of chunk that were consumed. This is always
// len(chunk) unless the configured match limit was reached, in which case it
// is the offset just past the last match; the remaining bytes are neither
// scanned nor buffered.
//
// Bytes at the end of chunk that could start an occurrence are held back and
// reported by a later Push or by Destroy.
func (s *Scanner) Push(chunk []byte) (int, error) {
	return s.PushAt(chunk, 0)
}

// PushAt is like Push but starts scanning at chunk[off]. The returned value
// is an offset into chunk. It is 0 when the scanner is destroyed or off is
// out of range.
func (s *Scanner) PushAt(chunk []byte, off int) (int, error) {
	if s.destroyed {
		return 0, ErrDestroyed
	}

	if off < 0 || off > len(chunk) {
		return 0, fmt.Errorf("%w: offset %d out of range [0, %d]", ErrInvalidArgument, off, len(chunk))
	}

	data := chunk[off:]
	s.bufPos = 0

	pos := 0
	for s.matches < s.maxMatches {
		var err error
		if pos, err = s.feed(data); err != nil {
			return off + pos, err
		}

		if pos == len(data) {
			break
		}
	}

	return off + pos, nil
}

// Reset discards any buffered lookbehind and the match count. A destroyed
// scanner becomes usable again.
func (s *Scanner) Reset() {
	s.lookbehindSize = 0
	s.bufPos = 0
	s.matches = 0
	s.destroyed = false
}

// Destroy reports the buffered lookbehind bytes, if any, as a final unmatched
// run and resets the scanner. It must be called once the input ends, or up to
// Needle().Len()-1 trailing bytes are never reported. Further pushes fail with
// ErrDestroyed until Reset is called.
func (s *Scanner) Destroy() error {
	if s.lookbehindSize > 0 {
		if err := s.emit(false, s.lookbehind[:s.lookbehindSize]); err != nil {
			return err
		}
	}

	s.Reset()
	s.destroyed = true

	return nil
}

// Matches returns the number of matches found since the last Reset.
func (s *Scanner) Matches() int {
	return s.matches
}

// MaxMatches returns the configured match limit, Unlimited by default.
func (s *Scanner) MaxMatches() int {
	return s.maxMatches
}

// Pending returns the number of bytes held in the lookbehind buffer.
func (s *Scanner) Pending() int {
	return s.lookbehindSize
}

// Needle returns the needle the scanner searches for.
func (s *Scanner) Needle() *Needle {
	return s.needle
}

// at reads position i of the lookbehind buffer followed by data.
// Negative positions address the lookbehind buffer from its end.
func (s *Scanner) at(data []byte, i int) byte {
	if i < 0 {
		return s.lookbehind[s.lookbehindSize+i]
	}

	return data[i]
}

// matchAt reports whether the first n needle bytes equal the n bytes starting
// at position pos of the lookbehind buffer followed by data.
func (s *Scanner) matchAt(data []byte, pos, n int) bool {
	needle := s.needle.bytes
	for i := 0; i < n; i++ {
		if s.at(data, pos+i) != needle[i] {
			return false
		}
	}

	return true
}

// feed advances through data until the next match or the end of data and
// returns the new position in data. It is called repeatedly by PushAt, with
// s.bufPos holding the position returned by the previous call.
func (s *Scanner) feed(data []byte) (int, error) {
	needle := s.needle.bytes
	occ := &s.needle.occ
	m := len(needle)
	last := m - 1
	lastByte := needle[last]
	n := len(data)
	end := n - m // last window start that fits entirely in data

	ptr := -s.lookbehindSize

	if ptr < 0 {
		// Windows that start in the lookbehind buffer.
		for ptr < 0 && ptr <= end {
			ch := s.at(data, ptr+last)
			if ch == lastByte && s.matchAt(data, ptr, last) {
				var prefix []byte
				if ptr > -s.lookbehindSize {
					prefix = s.lookbehind[:s.lookbehindSize+ptr]
				}

				s.lookbehindSize = 0
				s.matches++
				s.bufPos = ptr + m

				return s.bufPos, s.emit(true, prefix)
			}

			ptr += occ[ch]
		}

		// Not enough bytes left for a whole window: find the first position
		// whose remaining bytes are still a needle prefix.
		for ptr < 0 && !s.matchAt(data, ptr, n-ptr) {
			ptr++
		}

		if ptr < 0 {
			cut := s.lookbehindSize + ptr
			if cut > 0 {
				if err := s.emit(false, s.lookbehind[:cut]); err != nil {
					return s.bufPos, err
				}
			}

			s.lookbehindSize -= cut
			copy(s.lookbehind, s.lookbehind[cut:cut+s.lookbehindSize])
			copy(s.lookbehind[s.lookbehindSize:], data)
			s.lookbehindSize += n
			s.bufPos = n

			return n, nil
		}

		if err := s.emit(false, s.lookbehind[:s.lookbehindSize]); err != nil {
			return s.bufPos, err
		}

		s.lookbehindSize = 0
	}

	ptr += s.bufPos

	firstByte := needle[0]
	for ptr <= end {
		ch := data[ptr+last]
		if ch == lastByte && data[ptr] == firstByte && bytes.Equal(needle[:last], data[ptr:ptr+last]) {
			var prefix []byte
			if ptr > 0 {
				prefix = data[s.bufPos:ptr]
			}

			s.matches++
			s.bufPos = ptr + m

			return s.bufPos, s.emit(true, prefix)
		}

		ptr += occ[ch]
	}

	// Fewer than m bytes remain; keep the earliest suffix that is a needle
	// prefix for the next chunk.
	for ptr < n && (data[ptr] != firstByte || !bytes.Equal(data[ptr:], needle[:n-ptr])) {
		ptr++
	}

	if ptr > s.bufPos {
		if err := s.emit(false, data[s.bufPos:ptr]); err != nil {
			return s.bufPos, err
		}
	}

	copy(s.lookbehind, data[ptr:])
	s.lookbehindSize = n - ptr
	s.bufPos = n

	return n, nil
}
