package streamsearch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrInvalidArgument is the class of errors returned for bad construction parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is the class of errors returned when a scanner is misused.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyNeedle is returned when the needle has no bytes.
	ErrEmptyNeedle = fmt.Errorf("%w: needle must not be empty", ErrInvalidArgument)

	// ErrNilNeedle is returned when a nil *Needle is passed to NewScanner.
	ErrNilNeedle = fmt.Errorf("%w: needle must not be nil", ErrInvalidArgument)

	// ErrNilEmitFunc is returned when the emit callback is nil.
	ErrNilEmitFunc = fmt.Errorf("%w: emit func must not be nil", ErrInvalidArgument)

	// ErrInvalidMaxMatches is returned when maxMatches is less than 1.
	ErrInvalidMaxMatches = fmt.Errorf("%w: maxMatches must be greater than 0", ErrInvalidArgument)

	// ErrInvalidBufferSize is returned when bufferSize is less than 1.
	ErrInvalidBufferSize = fmt.Errorf("%w: bufferSize must be greater than 0", ErrInvalidArgument)

	// ErrDestroyed is returned when data is pushed after Destroy or Close.
	ErrDestroyed = fmt.Errorf("%w: scanner has been destroyed", ErrInvalidState)
)

const (
	// DefaultBufferSize is the default read buffer size for the Stream API (64 KiB).
	DefaultBufferSize = 64 * 1024

	// Unlimited is the maxMatches value used when no cap is configured.
	Unlimited = math.MaxInt

	meterName = "github.com/kalbasit/streamsearch"
)

// Option is a function that configures a Scanner, Stream or Writer.
type Option func(*config) error

// config holds the configuration shared by the scanner and its adapters.
type config struct {
	maxMatches    int
	bufferSize    int
	logger        *slog.Logger
	meterProvider metric.MeterProvider
}

func defaultConfig() config {
	return config{
		maxMatches: Unlimited,
		bufferSize: DefaultBufferSize,
	}
}

func newConfig(opts []Option) (config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}

	return cfg, nil
}

// validate checks the configuration against the needle it will be used with.
func (c *config) validate(needleLen int) error {
	if c.maxMatches < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxMatches, c.maxMatches)
	}

	if c.bufferSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBufferSize, c.bufferSize)
	}
	// A read buffer shorter than the needle only produces more lookbehind work.
	if c.bufferSize < needleLen {
		c.bufferSize = needleLen
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if c.meterProvider == nil {
		c.meterProvider = otel.GetMeterProvider()
	}

	return nil
}

// WithMaxMatches stops scanning once n matches have been reported.
func WithMaxMatches(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidMaxMatches, n)
		}

		c.maxMatches = n

		return nil
	}
}

// WithBufferSize sets the read buffer size for the Stream API.
// It is raised to the needle length when smaller.
func WithBufferSize(size int) Option {
	return func(c *config) error {
		if size <= 0 {
			return ErrInvalidBufferSize
		}

		c.bufferSize = size

		return nil
	}
}

// WithLogger sets the logger used by Stream and Writer.
// A nil logger restores the default, which discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l

		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used by Stream and
// Writer. The global provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) error {
		c.meterProvider = mp

		return nil
	}
}
