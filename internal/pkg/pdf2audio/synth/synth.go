// Package synth turns arbitrarily long text into one waveform by running the
// engine once per text unit and stitching the trimmed outputs in order.
package synth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pdf2audio/internal/pkg/pdf2audio/audio"
	"pdf2audio/internal/pkg/pdf2audio/chunker"
	"pdf2audio/internal/pkg/pdf2audio/engine"
	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
	"pdf2audio/internal/pkg/pdf2audio/style"
)

const tracerName = "pdf2audio/synth"

type Options struct {
	// MaxUnitLength bounds each unit in characters. Zero selects the
	// chunker default.
	MaxUnitLength int
	// Silence inserted between consecutive units, in seconds.
	Silence float64
	// Workers is the number of units inferred concurrently. The engine must
	// have at least as many scratch buffers.
	Workers int
	Logger  *zerolog.Logger
}

type Orchestrator struct {
	eng    engine.Engine
	opts   Options
	logger zerolog.Logger
	tracer trace.Tracer
}

func New(eng engine.Engine, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Silence < 0 {
		opts.Silence = 0
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		eng:    eng,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// SynthesizeLongForm chunks text, synthesizes every unit exactly once and
// concatenates the trimmed results in unit order. The run holds the engine
// exclusively: scratch buffers are reset once at its start and other runs on
// the same engine wait for it to end. Text without any speakable unit yields
// an empty waveform at the engine's sample rate and no error.
func (o *Orchestrator) SynthesizeLongForm(ctx context.Context, text string, st *style.Vector, totalStep int, speed float32) (*audio.Audio, error) {
	ctx, span := o.tracer.Start(ctx, "synthesize_long_form")
	defer span.End()

	end, err := o.eng.StartRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("synthesis cancelled before start: %w", err)
	}
	defer end()

	rate := o.eng.Info().SampleRate
	units := chunker.Chunk(text, o.opts.MaxUnitLength)
	span.SetAttributes(attribute.Int("units", len(units)))
	o.logger.Info().
		Int("units", len(units)).
		Int("workers", o.opts.Workers).
		Int("chars", len([]rune(text))).
		Msg("Text split into units")

	if len(units) == 0 {
		return audio.NewAudio(nil, rate), nil
	}

	segments, err := o.synthesizeAll(ctx, units, st, totalStep, speed, rate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return o.assemble(segments, rate), nil
}

func (o *Orchestrator) synthesizeAll(ctx context.Context, units []chunker.Unit, st *style.Vector, totalStep int, speed float32, rate int) ([]audio.Segment, error) {
	segments := make([]audio.Segment, len(units))

	if o.opts.Workers == 1 {
		for i, u := range units {
			seg, err := o.synthesizeUnit(ctx, u, st, totalStep, speed, rate)
			if err != nil {
				return nil, err
			}
			segments[i] = seg
		}
		return segments, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, u := range units {
		g.Go(func() error {
			seg, err := o.synthesizeUnit(gctx, u, st, totalStep, speed, rate)
			if err != nil {
				return err
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

// synthesizeUnit runs one inference and returns an owned copy of its trimmed
// output. The engine buffer is released before returning.
func (o *Orchestrator) synthesizeUnit(ctx context.Context, u chunker.Unit, st *style.Vector, totalStep int, speed float32, rate int) (audio.Segment, error) {
	if err := ctx.Err(); err != nil {
		return audio.Segment{}, fmt.Errorf("synthesis cancelled before unit %d: %w", u.Index, err)
	}

	ctx, span := o.tracer.Start(ctx, "synthesize_unit", trace.WithAttributes(
		attribute.Int("unit.index", u.Index),
		attribute.Int("unit.chars", u.Len()),
	))
	defer span.End()

	res, err := o.eng.Synthesize(ctx, engine.Request{
		Unit:      u,
		Style:     st,
		TotalStep: totalStep,
		Speed:     speed,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return audio.Segment{}, pdferrors.Wrap(pdferrors.KindInference, "synthesize-unit",
			fmt.Sprintf("unit %d failed", u.Index), err)
	}
	defer res.Release()

	if res.SampleRate != rate {
		return audio.Segment{}, pdferrors.Newf(pdferrors.KindInference, "synthesize-unit",
			"unit %d produced sample rate %d, run uses %d", u.Index, res.SampleRate, rate)
	}

	seg, err := audio.Trim(res.Buffer, res.Duration, res.SampleRate)
	if err != nil {
		return audio.Segment{}, pdferrors.Wrap(pdferrors.KindAssembly, "trim",
			fmt.Sprintf("unit %d violates the buffer bound", u.Index), err)
	}

	span.SetAttributes(attribute.Float64("unit.duration_sec", res.Duration))
	o.logger.Debug().
		Int("unit", u.Index).
		Int("chars", u.Len()).
		Float64("duration_sec", res.Duration).
		Int("samples", seg.Len()).
		Msg("Unit synthesized")

	return seg.Clone(), nil
}

func (o *Orchestrator) assemble(segments []audio.Segment, rate int) *audio.Audio {
	gap := audio.ValidSamples(o.opts.Silence, rate)
	total := gap * (len(segments) - 1)
	for _, s := range segments {
		total += s.Len()
	}

	out := audio.NewAudio(make([]float32, 0, total), rate)
	for i, s := range segments {
		if i > 0 {
			out.AppendSilence(o.opts.Silence)
		}
		out.Append(s)
	}
	return out
}
