// Package streamsearch finds a fixed byte pattern (the needle) in a stream
// that arrives in arbitrary chunks, using a streaming variant of the
// Boyer-Moore-Horspool algorithm.
//
// # Overview
//
// The scanner never buffers more than one needle length of input. Bytes at
// the end of a chunk that could be the start of an occurrence are held in a
// small lookbehind buffer and resolved when the next chunk arrives, so
// occurrences that straddle any number of chunk boundaries are found exactly
// as if the input had been pushed in one piece.
//
// Results are reported through a callback as a sequence of unmatched runs
// and match events. Occurrences do not overlap: after a match the search
// resumes right after it.
//
// # Quick Start
//
// Callback API, zero-copy:
//
//	s, _ := streamsearch.New([]byte("\r\n"), func(matched bool, data []byte) error {
//	    // data is only valid during the call
//	    return nil
//	})
//	for chunk := range chunks {
//	    if _, err := s.Push(chunk); err != nil {
//	        return err
//	    }
//	}
//	// Report the held-back tail
//	_ = s.Destroy()
//
// Streaming API over an io.Reader:
//
//	stream, _ := streamsearch.NewStream(reader, []byte("--boundary"))
//	for {
//	    seg, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // Process seg.Data; seg.Match marks a needle after it
//	}
//
// Writer is the io.Writer counterpart of Stream, for use with io.Copy.
//
// # Algorithm
//
// Each needle compiles once into a Needle holding the 256-entry bad-character
// table. Within a chunk the classic Horspool loop compares the byte under the
// last needle position and skips by the table on a mismatch. Windows that
// begin in the lookbehind buffer are checked through a two-segment accessor
// over the buffer followed by the new chunk. When fewer than a needle length
// of bytes remain, the earliest suffix that is still a needle prefix is kept
// for the next chunk and everything before it is reported as unmatched.
//
// # Thread Safety
//
// A Needle is immutable and can be shared freely. Each Scanner, Stream and
// Writer holds its own mutable state and must be used by one goroutine at a
// time. Use ScannerPool or StreamPool to recycle instances.
package streamsearch
