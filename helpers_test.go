package streamsearch_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/kalbasit/streamsearch"
)

// token is one observable result: an unmatched run or a match event.
type token struct {
	Match bool
	Data  string
}

func run(s string) token { return token{Data: s} }

var match = token{Match: true}

// recorder collects emissions and rebuilds the input from them.
type recorder struct {
	needle  []byte
	tokens  []token
	offsets []int // stream offsets of matches
	out     bytes.Buffer
}

func newRecorder(needle []byte) *recorder {
	return &recorder{needle: needle}
}

func (r *recorder) emit(matched bool, data []byte) error {
	if data != nil {
		r.tokens = append(r.tokens, run(string(data)))
		r.out.Write(data)
	}

	if matched {
		r.tokens = append(r.tokens, match)
		r.offsets = append(r.offsets, r.out.Len())
		r.out.Write(r.needle)
	}

	return nil
}

// scanChunks pushes every chunk through a new scanner and destroys it.
func scanChunks(t testing.TB, needle []byte, chunks [][]byte, opts ...streamsearch.Option) *recorder {
	t.Helper()

	rec := newRecorder(needle)

	s, err := streamsearch.New(needle, rec.emit, opts...)
	if err != nil {
		t.Fatal(err)
	}

	for i, chunk := range chunks {
		n, err := s.Push(chunk)
		if err != nil {
			t.Fatalf("Push(chunk %d): %v", i, err)
		}

		if n != len(chunk) {
			t.Fatalf("Push(chunk %d) consumed %d bytes, want %d", i, n, len(chunk))
		}
	}

	if got := s.Matches(); got != len(rec.offsets) {
		t.Errorf("Matches() = %d, emitted %d match events", got, len(rec.offsets))
	}

	if err := s.Destroy(); err != nil {
		t.Fatal(err)
	}

	return rec
}

// indexAll returns the offsets of all non-overlapping occurrences.
func indexAll(data, needle []byte) []int {
	var offsets []int

	for pos := 0; ; {
		i := bytes.Index(data[pos:], needle)
		if i < 0 {
			return offsets
		}

		offsets = append(offsets, pos+i)
		pos += i + len(needle)
	}
}

// randomSplit cuts data into chunks of 0 to maxLen bytes.
func randomSplit(rng *rand.Rand, data []byte, maxLen int) [][]byte {
	var chunks [][]byte

	for len(data) > 0 {
		n := min(rng.IntN(maxLen+1), len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}

	return chunks
}

// byteChunks splits data into one-byte chunks.
func byteChunks(data []byte) [][]byte {
	chunks := make([][]byte, len(data))
	for i := range data {
		chunks[i] = data[i : i+1]
	}

	return chunks
}

// randomHaystack returns n bytes drawn from alphabet with needle planted at
// random positions. A small alphabet produces many partial matches.
func randomHaystack(rng *rand.Rand, n int, alphabet string, needle []byte, plants int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = alphabet[rng.IntN(len(alphabet))]
	}

	if n >= len(needle) {
		for range plants {
			copy(data[rng.IntN(n-len(needle)+1):], needle)
		}
	}

	return data
}
