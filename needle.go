package streamsearch

// Needle is an immutable search pattern together with its Boyer-Moore-Horspool
// occurrence table. A Needle is safe for concurrent use and can be shared by
// any number of scanners.
type Needle struct {
	bytes []byte
	occ   [256]int // skip distance per byte value
}

// NewNeedle copies b and precomputes its occurrence table.
// It returns ErrEmptyNeedle if b is empty.
func NewNeedle(b []byte) (*Needle, error) {
	if len(b) == 0 {
		return nil, ErrEmptyNeedle
	}

	n := &Needle{bytes: append([]byte(nil), b...)}

	m := len(b)
	for i := range n.occ {
		n.occ[i] = m
	}

	// The last byte is excluded so every skip is at least 1.
	for i := 0; i < m-1; i++ {
		n.occ[b[i]] = m - 1 - i
	}

	return n, nil
}

// Len returns the needle length in bytes.
func (n *Needle) Len() int {
	return len(n.bytes)
}

// Bytes returns a copy of the needle.
func (n *Needle) Bytes() []byte {
	return append([]byte(nil), n.bytes...)
}

// Skip returns the distance the search window advances when b is the byte
// under the last needle position and the window did not match.
func (n *Needle) Skip(b byte) int {
	return n.occ[b]
}

// String returns the needle as a string.
func (n *Needle) String() string {
	return string(n.bytes)
}
