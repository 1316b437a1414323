package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf2audio/internal/pkg/pdf2audio/audio"
	"pdf2audio/internal/pkg/pdf2audio/config"
	"pdf2audio/internal/pkg/pdf2audio/engine"
	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
	"pdf2audio/internal/pkg/pdf2audio/extract"
	"pdf2audio/internal/pkg/pdf2audio/style"
	"pdf2audio/internal/pkg/pdf2audio/synth"
	"pdf2audio/internal/pkg/pdf2audio/telemetry"
	"pdf2audio/internal/pkg/pdf2audio/timing"

	_ "pdf2audio/internal/pkg/pdf2audio/backends/supertonic"
)

const previewLen = 200

func main() {
	fmt.Fprintf(os.Stderr, "pdf2audio %s\n", Version)

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal().Err(err).Str("kind", string(pdferrors.KindOf(err))).Msg("Failed to parse configuration")
	}

	if err := setupLogging(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Error().Err(err).Str("kind", string(pdferrors.KindOf(err))).Msg("Conversion failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	jobID := uuid.NewString()
	logger := log.With().Str("job", jobID).Logger()

	shutdown, err := telemetry.Setup(ctx, cfg.TraceFile, "pdf2audio", Version, jobID)
	if err != nil {
		return pdferrors.Wrap(pdferrors.KindConfig, "telemetry", "failed to setup tracing", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	logConfiguration(logger, cfg)

	extractor, err := extract.New(cfg.PdftotextPath, cfg.PdftotextArgs)
	if err != nil {
		return err
	}
	logger.Debug().Str("pdftotext", extractor.Binary()).Msg("Extraction tool resolved")

	text, err := timing.Measure(ctx, logger, "extract", func(ctx context.Context) (string, error) {
		return extractText(ctx, logger, extractor, cfg)
	})
	if err != nil {
		return err
	}
	logger.Info().Int("characters", len([]rune(text))).Msg("Text extracted")
	logger.Info().Str("preview", preview(text, previewLen)).Msg("Text preview")

	logger.Info().Str("backend", cfg.Backend).Str("onnx_dir", cfg.OnnxDir).Msg("Loading TTS engine...")
	eng, err := timing.Measure(ctx, logger, "load-engine", func(context.Context) (engine.Engine, error) {
		return engine.New(cfg.Backend, engine.Config{
			ModelDir: cfg.OnnxDir,
			Workers:  cfg.Workers,
			Seed:     cfg.Seed,
			Language: cfg.Lang,
		})
	})
	if err != nil {
		return pdferrors.Wrap(pdferrors.KindConfig, "load-engine", "failed to load engine "+cfg.Backend, err)
	}
	defer eng.Close()

	info := eng.Info()
	logger.Debug().
		Str("engine", info.Name).
		Strs("languages", info.Languages).
		Int("sample_rate", info.SampleRate).
		Msg("Engine loaded")

	voice, err := style.Load(cfg.VoiceStyle, info.StyleShape)
	if err != nil {
		return err
	}
	logger.Info().Str("voice", voice.Name()).Msg("Voice style loaded")

	orchestrator := synth.New(eng, synth.Options{
		MaxUnitLength: cfg.MaxUnitLength,
		Silence:       cfg.Silence,
		Workers:       cfg.Workers,
		Logger:        &logger,
	})

	logger.Info().Msg("Generating speech...")
	result, err := timing.Measure(ctx, logger, "synthesize", func(ctx context.Context) (*audio.Audio, error) {
		return orchestrator.SynthesizeLongForm(ctx, text, voice, cfg.TotalStep, cfg.Speed)
	})
	if err != nil {
		return err
	}
	if result.Empty() {
		logger.Warn().Msg("No speakable text found, writing an empty WAV file")
	}

	if cfg.SampleRate > 0 && cfg.SampleRate != result.SampleRate {
		logger.Info().Int("from", result.SampleRate).Int("to", cfg.SampleRate).Msg("Resampling audio")
		result, err = result.Resample(cfg.SampleRate)
		if err != nil {
			return pdferrors.Wrap(pdferrors.KindAssembly, "resample", "failed to resample audio", err)
		}
	}

	if err := result.SaveWAV(cfg.Output, cfg.BitDepth); err != nil {
		return pdferrors.Wrap(pdferrors.KindAssembly, "save-wav", "failed to save audio", err)
	}

	logger.Info().
		Str("output", cfg.Output).
		Str("duration", formatDuration(result.Duration())).
		Int("sample_rate", result.SampleRate).
		Int("bit_depth", cfg.BitDepth).
		Msg("Audio saved successfully")
	return nil
}

// extractText runs the extraction tool. With --debug the raw text, and the
// cleaned text when footnotes are removed, are written to the working
// directory.
func extractText(ctx context.Context, logger zerolog.Logger, x *extract.Extractor, cfg *config.Config) (string, error) {
	req := extract.Request{
		Path:            cfg.PDF,
		FirstPage:       cfg.FirstPage,
		LastPage:        cfg.LastPage,
		RemoveFootnotes: cfg.RemoveFootnotes,
	}
	if !cfg.Debug {
		return x.Extract(ctx, req)
	}

	raw, err := x.ExtractRaw(ctx, req)
	if err != nil {
		return "", err
	}
	stem := config.Stem(cfg.PDF)
	writeDebugText(logger, stem+"_extracted_raw.txt", raw)

	text := extract.Clean(raw, cfg.RemoveFootnotes)
	if cfg.RemoveFootnotes {
		writeDebugText(logger, stem+"_extracted_cleaned.txt", text)
	}
	if text == "" {
		return "", pdferrors.New(pdferrors.KindExtraction, "extract", "no text left after cleaning")
	}
	return text, nil
}

func writeDebugText(logger zerolog.Logger, path, text string) {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to write debug text")
		return
	}
	logger.Info().Str("path", path).Msg("Debug text written")
}

func logConfiguration(logger zerolog.Logger, cfg *config.Config) {
	pages := "all"
	switch {
	case cfg.FirstPage > 0 && cfg.LastPage > 0:
		pages = fmt.Sprintf("%d-%d", cfg.FirstPage, cfg.LastPage)
	case cfg.FirstPage > 0:
		pages = fmt.Sprintf("%d-", cfg.FirstPage)
	case cfg.LastPage > 0:
		pages = fmt.Sprintf("-%d", cfg.LastPage)
	}

	logger.Info().
		Str("pdf", cfg.PDF).
		Str("output", cfg.Output).
		Str("pages", pages).
		Str("voice_style", cfg.VoiceStyle).
		Int("total_step", cfg.TotalStep).
		Float32("speed", cfg.Speed).
		Bool("remove_footnotes", cfg.RemoveFootnotes).
		Msg("Configuration loaded")
	logger.Debug().
		Str("backend", cfg.Backend).
		Str("onnx_dir", cfg.OnnxDir).
		Str("lang", cfg.Lang).
		Int("max_unit_length", cfg.MaxUnitLength).
		Float64("silence", cfg.Silence).
		Int("workers", cfg.Workers).
		Int("sample_rate", cfg.SampleRate).
		Int("bit_depth", cfg.BitDepth).
		Uint64("seed", cfg.Seed).
		Msg("Synthesis settings")
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	}

	return nil
}

func preview(text string, maxRunes int) string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes]) + "..."
}

// formatDuration renders seconds as "Xm Ys".
func formatDuration(seconds float64) string {
	total := int(math.Round(seconds))
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
