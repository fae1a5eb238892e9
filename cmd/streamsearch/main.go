// Command streamsearch counts or replaces occurrences of a byte pattern in
// files or standard input without loading them into memory.
//
// Usage:
//
//	streamsearch -needle STR [-escape] [-max N] [-replace STR] [-stats] [FILE...]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/kalbasit/streamsearch"
)

var version = "dev"

// errUsage is returned for invalid command lines; usage was already printed.
var errUsage = errors.New("usage")

type options struct {
	needle   []byte
	replace  []byte
	doRepl   bool
	max      int
	stats    bool
	bufSize  int
	jobs     int
	files    []string
	showVers bool
}

func main() {
	logger := initLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, logger)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}

	if err != nil {
		logger.Error("streamsearch failed", "error", err)
		os.Exit(1)
	}
}

// initLogging configures the default slog logger from the environment.
// JSON output if STREAMSEARCH_JSON_LOG=1/true, text otherwise. Logs go to
// stderr since stdout carries results.
func initLogging() *slog.Logger {
	mode := strings.ToLower(os.Getenv("STREAMSEARCH_JSON_LOG"))
	opts := &slog.HandlerOptions{Level: levelFromEnv()}

	var handler slog.Handler
	if mode == "1" || mode == "true" || mode == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("STREAMSEARCH_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("streamsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts    options
		needle  string
		replace string
		escape  bool
	)

	fs.StringVar(&needle, "needle", "", "byte pattern to search for (required)")
	fs.StringVar(&replace, "replace", "", "write input to stdout with every occurrence replaced by this string")
	fs.BoolVar(&escape, "escape", false, "interpret Go escape sequences such as \\r\\n in -needle and -replace")
	fs.IntVar(&opts.max, "max", 0, "stop matching after this many occurrences per input (0 = unlimited)")
	fs.BoolVar(&opts.stats, "stats", false, "log scanned bytes and matches when done")
	fs.IntVar(&opts.bufSize, "buffer", streamsearch.DefaultBufferSize, "read buffer size in bytes")
	fs.IntVar(&opts.jobs, "jobs", 4, "number of files scanned concurrently when counting")
	fs.BoolVar(&opts.showVers, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	if opts.showVers {
		return &opts, nil
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "replace" {
			opts.doRepl = true
		}
	})

	if escape {
		var err error
		if needle, err = unescape(needle); err != nil {
			return nil, fmt.Errorf("-needle: %w", err)
		}

		if replace, err = unescape(replace); err != nil {
			return nil, fmt.Errorf("-replace: %w", err)
		}
	}

	if needle == "" {
		fmt.Fprintln(stderr, "streamsearch: -needle is required")
		fs.Usage()

		return nil, errUsage
	}

	if opts.jobs < 1 {
		opts.jobs = 1
	}

	opts.needle = []byte(needle)
	opts.replace = []byte(replace)
	opts.files = fs.Args()

	return &opts, nil
}

func unescape(s string) (string, error) {
	return strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, logger *slog.Logger) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVers {
		_, err := fmt.Fprintf(stdout, "streamsearch %s\n", version)

		return err
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	defer func() {
		if err := mp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	scanOpts := []streamsearch.Option{
		streamsearch.WithBufferSize(opts.bufSize),
		streamsearch.WithLogger(logger),
		streamsearch.WithMeterProvider(mp),
	}
	if opts.max > 0 {
		scanOpts = append(scanOpts, streamsearch.WithMaxMatches(opts.max))
	}

	if opts.doRepl {
		err = replaceAll(ctx, opts, scanOpts, stdin, stdout)
	} else {
		err = countAll(ctx, opts, scanOpts, stdin, stdout)
	}

	if err != nil {
		return err
	}

	if opts.stats {
		return logStats(ctx, reader, logger)
	}

	return nil
}

// countAll prints the number of occurrences in each input, scanning files
// concurrently with one Writer per file.
func countAll(ctx context.Context, opts *options, scanOpts []streamsearch.Option, stdin io.Reader, stdout io.Writer) error {
	if len(opts.files) == 0 {
		n, err := count(ctx, stdin, opts.needle, scanOpts)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(stdout, n)

		return err
	}

	counts := make([]int, len(opts.files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)

	for i, name := range opts.files {
		g.Go(func() error {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := count(ctx, f, opts.needle, scanOpts)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			counts[i] = n

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range opts.files {
		if _, err := fmt.Fprintf(stdout, "%s:%d\n", name, counts[i]); err != nil {
			return err
		}
	}

	return nil
}

func count(ctx context.Context, r io.Reader, needle []byte, scanOpts []streamsearch.Option) (int, error) {
	w, err := streamsearch.NewWriter(needle, func(bool, []byte) error { return nil }, scanOpts...)
	if err != nil {
		return 0, err
	}

	if _, err := io.Copy(w, contextReader{ctx: ctx, r: r}); err != nil {
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, err
	}

	return w.Matches(), nil
}

// replaceAll copies every input to stdout, replacing each occurrence.
// Output produced before a failing input is still written.
func replaceAll(ctx context.Context, opts *options, scanOpts []streamsearch.Option, stdin io.Reader, stdout io.Writer) (err error) {
	out := bufio.NewWriter(stdout)

	defer func() {
		if ferr := out.Flush(); err == nil {
			err = ferr
		}
	}()

	replaceOne := func(r io.Reader) error {
		stream, err := streamsearch.NewStream(contextReader{ctx: ctx, r: r}, opts.needle, scanOpts...)
		if err != nil {
			return err
		}

		for {
			seg, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}

			if err != nil {
				return err
			}

			if _, err := out.Write(seg.Data); err != nil {
				return err
			}

			if seg.Match {
				if _, err := out.Write(opts.replace); err != nil {
					return err
				}
			}
		}
	}

	if len(opts.files) == 0 {
		if err := replaceOne(stdin); err != nil {
			return err
		}
	}

	for _, name := range opts.files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}

		err = replaceOne(f)
		f.Close()

		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func logStats(ctx context.Context, reader *sdkmetric.ManualReader, logger *slog.Logger) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			logger.Info("stats", "metric", m.Name, "value", total, "unit", m.Unit)
		}
	}

	return nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
