// Package supertonic implements the inference engine for the Supertonic
// flow-matching TTS model: duration predictor, text encoder, iterative vector
// estimator and vocoder.
package supertonic

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"

	"pdf2audio/internal/pkg/pdf2audio/engine"
	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
	"pdf2audio/internal/pkg/pdf2audio/onnx"
	"pdf2audio/internal/pkg/pdf2audio/preprocess"
	"pdf2audio/internal/pkg/pdf2audio/style"
)

const Name = "supertonic"

func init() {
	engine.Register(Name, NewEngine)
}

type Engine struct {
	cfg        *modelConfig
	indexer    *indexer
	normalizer *preprocess.Normalizer
	pipeline   *pipeline
	pool       *scratchPool
	info       engine.Info
}

func NewEngine(cfg engine.Config) (engine.Engine, error) {
	normalizer, err := preprocess.New(cfg.Language)
	if err != nil {
		return nil, err
	}

	mc, err := loadModelConfig(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	idx, err := loadIndexer(cfg.ModelDir)
	if err != nil {
		return nil, err
	}

	if err := onnx.Acquire(); err != nil {
		return nil, err
	}
	p, err := newPipeline(cfg.ModelDir)
	if err != nil {
		onnx.Release()
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	e := &Engine{
		cfg:        mc,
		indexer:    idx,
		normalizer: normalizer,
		pipeline:   p,
		pool:       newScratchPool(cfg.Workers, seed),
		info: engine.Info{
			Name:       Name,
			Languages:  preprocess.Languages,
			SampleRate: mc.AE.SampleRate,
			StyleShape: mc.styleShape(),
		},
	}

	log.Debug().
		Str("model_dir", cfg.ModelDir).
		Int("sample_rate", mc.AE.SampleRate).
		Int("chunk_size", mc.chunkSize()).
		Int("scratches", e.pool.size).
		Msg("Supertonic engine loaded")

	return e, nil
}

func (e *Engine) Info() engine.Info {
	return e.info
}

func (e *Engine) ResetScratchBuffers() {
	e.pool.reset()
}

func (e *Engine) StartRun(ctx context.Context) (func(), error) {
	return e.pool.begin(ctx)
}

func (e *Engine) Close() error {
	err := e.pipeline.close()
	if rerr := onnx.Release(); err == nil {
		err = rerr
	}
	return err
}

// Synthesize runs one unit through the model. The returned Result holds a
// scratch buffer until it is released.
func (e *Engine) Synthesize(ctx context.Context, req engine.Request) (*engine.Result, error) {
	const op = "synthesize"

	if strings.TrimSpace(req.Unit.Text) == "" {
		return nil, pdferrors.Newf(pdferrors.KindInference, op, "empty unit %d", req.Unit.Index)
	}
	if err := e.validate(req); err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindInference, op, fmt.Sprintf("invalid request for unit %d", req.Unit.Index), err)
	}

	sc, err := e.pool.acquire(ctx)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindInference, op, "no inference context available", err)
	}
	sc.seedFor(e.pool.seed, req.Unit.Index)

	wav, duration, err := e.infer(ctx, sc, req)
	if err != nil {
		e.pool.release(sc)
		return nil, pdferrors.Wrap(pdferrors.KindInference, op, fmt.Sprintf("inference failed for unit %d", req.Unit.Index), err)
	}

	return engine.NewResult(wav, duration, e.info.SampleRate, func() { e.pool.release(sc) }), nil
}

func (e *Engine) validate(req engine.Request) error {
	if req.Style == nil {
		return fmt.Errorf("missing voice style")
	}
	if got := req.Style.Shape(); got != e.info.StyleShape {
		return fmt.Errorf("voice style shape ttl %s dp %s does not match model ttl %s dp %s",
			got.TTL, got.DP, e.info.StyleShape.TTL, e.info.StyleShape.DP)
	}
	if req.TotalStep < 1 {
		return fmt.Errorf("total step must be at least 1, got %d", req.TotalStep)
	}
	if !(req.Speed > 0) || math.IsInf(float64(req.Speed), 0) {
		return fmt.Errorf("speed must be a positive number, got %v", req.Speed)
	}
	return nil
}

func (e *Engine) infer(ctx context.Context, sc *scratch, req engine.Request) ([]float32, float64, error) {
	text := e.normalizer.Process(req.Unit.Text)
	ids, mask := e.indexer.encode(text)
	if len(ids) == 0 {
		return sc.waveform(0), 0, nil
	}

	in, err := e.newInputs(ids, mask, req.Style)
	if err != nil {
		return nil, 0, err
	}
	defer in.destroy()

	duration, err := e.predictDuration(in, req.Speed)
	if err != nil {
		return nil, 0, err
	}

	textEmb, err := runSingle(e.pipeline.textEncoder, "text encoder",
		[]ort.Value{in.textIDs, in.styleTTL, in.textMask})
	if err != nil {
		return nil, 0, err
	}
	defer textEmb.Destroy()

	chunk := e.cfg.chunkSize()
	frames := int64(math.Ceil(duration * float64(e.info.SampleRate) / float64(chunk)))
	frames = max(frames, 1)
	channels := int64(e.cfg.latentChannels())

	latent, err := e.denoise(ctx, sc, in, textEmb, channels, frames, req.TotalStep)
	if err != nil {
		return nil, 0, err
	}

	latentT, err := ort.NewTensor(ort.NewShape(1, channels, frames), latent)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create latent tensor: %w", err)
	}
	defer latentT.Destroy()

	wavT, err := runSingle(e.pipeline.vocoder, "vocoder", []ort.Value{latentT})
	if err != nil {
		return nil, 0, err
	}
	defer wavT.Destroy()

	out := wavT.GetData()
	buf := sc.waveform(len(out))
	copy(buf, out)
	return buf, duration, nil
}

func (e *Engine) newInputs(ids []int64, mask []float32, st *style.Vector) (*inputs, error) {
	in := &inputs{}
	n := int64(len(ids))
	shape := e.info.StyleShape

	var err error
	if in.textIDs, err = ort.NewTensor(ort.NewShape(1, n), ids); err != nil {
		return nil, fmt.Errorf("failed to create text ids tensor: %w", err)
	}
	if in.textMask, err = ort.NewTensor(ort.NewShape(1, 1, n), mask); err != nil {
		in.destroy()
		return nil, fmt.Errorf("failed to create text mask tensor: %w", err)
	}
	if in.styleTTL, err = ort.NewTensor(ort.NewShape(1, int64(shape.TTL.Tokens), int64(shape.TTL.Width)), st.TTL()); err != nil {
		in.destroy()
		return nil, fmt.Errorf("failed to create style_ttl tensor: %w", err)
	}
	if in.styleDP, err = ort.NewTensor(ort.NewShape(1, int64(shape.DP.Tokens), int64(shape.DP.Width)), st.DP()); err != nil {
		in.destroy()
		return nil, fmt.Errorf("failed to create style_dp tensor: %w", err)
	}
	return in, nil
}

// predictDuration returns the unit duration in seconds, already divided by
// speed.
func (e *Engine) predictDuration(in *inputs, speed float32) (float64, error) {
	durT, err := runSingle(e.pipeline.durationPredictor, "duration predictor",
		[]ort.Value{in.textIDs, in.styleDP, in.textMask})
	if err != nil {
		return 0, err
	}
	defer durT.Destroy()

	data := durT.GetData()
	if len(data) == 0 {
		return 0, fmt.Errorf("duration predictor returned no values")
	}
	d := float64(data[0] / speed)
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, fmt.Errorf("duration predictor returned invalid duration %v", d)
	}
	return d, nil
}

// denoise draws a Gaussian latent and refines it totalStep times.
func (e *Engine) denoise(ctx context.Context, sc *scratch, in *inputs, textEmb *ort.Tensor[float32], channels, frames int64, totalStep int) ([]float32, error) {
	latent := sc.noise(int(channels * frames))

	latentMask := make([]float32, frames)
	for i := range latentMask {
		latentMask[i] = 1
	}
	maskT, err := ort.NewTensor(ort.NewShape(1, 1, frames), latentMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create latent mask tensor: %w", err)
	}
	defer maskT.Destroy()

	totalT, err := ort.NewTensor(ort.NewShape(1), []float32{float32(totalStep)})
	if err != nil {
		return nil, fmt.Errorf("failed to create total step tensor: %w", err)
	}
	defer totalT.Destroy()

	for step := range totalStep {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.denoiseStep(latent, channels, frames, step, in, textEmb, maskT, totalT); err != nil {
			return nil, err
		}
	}
	return latent, nil
}

func (e *Engine) denoiseStep(latent []float32, channels, frames int64, step int, in *inputs, textEmb, maskT, totalT *ort.Tensor[float32]) error {
	noisyT, err := ort.NewTensor(ort.NewShape(1, channels, frames), latent)
	if err != nil {
		return fmt.Errorf("failed to create noisy latent tensor: %w", err)
	}
	defer noisyT.Destroy()

	stepT, err := ort.NewTensor(ort.NewShape(1), []float32{float32(step)})
	if err != nil {
		return fmt.Errorf("failed to create current step tensor: %w", err)
	}
	defer stepT.Destroy()

	denoised, err := runSingle(e.pipeline.vectorEstimator, "vector estimator",
		[]ort.Value{noisyT, textEmb, in.styleTTL, maskT, in.textMask, stepT, totalT})
	if err != nil {
		return err
	}
	defer denoised.Destroy()

	out := denoised.GetData()
	if len(out) != len(latent) {
		return fmt.Errorf("vector estimator returned %d values at step %d, want %d", len(out), step, len(latent))
	}
	copy(latent, out)
	return nil
}
