// Package timing wraps pipeline phases with a log line, a trace span and a
// resident-memory reading.
package timing

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "pdf2audio/timing"

// Measure runs fn as the named phase. It logs the start, then the elapsed
// seconds and process RSS on completion, and records fn's error on the span.
// The result and error of fn are returned unchanged.
func Measure[T any](ctx context.Context, logger zerolog.Logger, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	defer span.End()

	logger.Info().Str("phase", name).Msg("Starting")
	start := time.Now()

	result, err := fn(ctx)

	elapsed := time.Since(start)
	ev := logger.Info()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ev = logger.Error().Err(err)
	}
	if rss, ok := residentBytes(); ok {
		ev = ev.Uint64("rss_bytes", rss)
	}
	ev.Str("phase", name).
		Float64("elapsed_sec", elapsed.Seconds()).
		Msg("Finished")

	return result, err
}

func residentBytes() (uint64, bool) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, false
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		return 0, false
	}
	return mem.RSS, true
}
