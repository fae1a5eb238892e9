package streamsearch_test

import (
	"bytes"
	"testing"

	"github.com/kalbasit/streamsearch"
)

// TestOptionsValidation tests option validation.
func TestOptionsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []streamsearch.Option
		wantErr bool
	}{
		{
			name:    "valid default",
			opts:    []streamsearch.Option{},
			wantErr: false,
		},
		{
			name: "valid custom",
			opts: []streamsearch.Option{
				streamsearch.WithMaxMatches(10),
				streamsearch.WithBufferSize(4 * 1024),
				streamsearch.WithLogger(nil),
				streamsearch.WithMeterProvider(nil),
			},
			wantErr: false,
		},
		{
			name:    "buffer smaller than needle",
			opts:    []streamsearch.Option{streamsearch.WithBufferSize(1)},
			wantErr: false,
		},
		{
			name:    "zero max matches",
			opts:    []streamsearch.Option{streamsearch.WithMaxMatches(0)},
			wantErr: true,
		},
		{
			name:    "negative max matches",
			opts:    []streamsearch.Option{streamsearch.WithMaxMatches(-1)},
			wantErr: true,
		},
		{
			name:    "zero buffer",
			opts:    []streamsearch.Option{streamsearch.WithBufferSize(0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := streamsearch.NewStream(bytes.NewReader(nil), []byte("--boundary"), tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStream() error = %v, wantErr %v", err, tt.wantErr)
			}

			_, err = streamsearch.New([]byte("--boundary"), func(bool, []byte) error { return nil }, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
