package supertonic

import (
	"fmt"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// pipeline holds the four ONNX sessions of the model. Sessions are shared by
// all concurrent calls.
type pipeline struct {
	durationPredictor *ort.DynamicAdvancedSession
	textEncoder       *ort.DynamicAdvancedSession
	vectorEstimator   *ort.DynamicAdvancedSession
	vocoder           *ort.DynamicAdvancedSession
}

func newPipeline(modelDir string) (*pipeline, error) {
	p := &pipeline{}

	var err error
	p.durationPredictor, err = ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, "duration_predictor.onnx"),
		[]string{"text_ids", "style_dp", "text_mask"},
		[]string{"duration"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load duration predictor: %w", err)
	}

	p.textEncoder, err = ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, "text_encoder.onnx"),
		[]string{"text_ids", "style_ttl", "text_mask"},
		[]string{"text_emb"},
		nil,
	)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("failed to load text encoder: %w", err)
	}

	p.vectorEstimator, err = ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, "vector_estimator.onnx"),
		[]string{"noisy_latent", "text_emb", "style_ttl", "latent_mask", "text_mask", "current_step", "total_step"},
		[]string{"denoised_latent"},
		nil,
	)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("failed to load vector estimator: %w", err)
	}

	p.vocoder, err = ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, "vocoder.onnx"),
		[]string{"latent"},
		[]string{"wav_tts"},
		nil,
	)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("failed to load vocoder: %w", err)
	}

	return p, nil
}

func (p *pipeline) close() error {
	var firstErr error
	for _, s := range []*ort.DynamicAdvancedSession{p.durationPredictor, p.textEncoder, p.vectorEstimator, p.vocoder} {
		if s == nil {
			continue
		}
		if err := s.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// inputs bundles the per-call tensors shared by several sessions.
type inputs struct {
	textIDs  *ort.Tensor[int64]
	textMask *ort.Tensor[float32]
	styleTTL *ort.Tensor[float32]
	styleDP  *ort.Tensor[float32]
}

func (in *inputs) destroy() {
	if in.textIDs != nil {
		in.textIDs.Destroy()
	}
	for _, t := range []*ort.Tensor[float32]{in.textMask, in.styleTTL, in.styleDP} {
		if t != nil {
			t.Destroy()
		}
	}
}

// runSingle runs a session with one float32 output and hands ownership of the
// output tensor to the caller.
func runSingle(s *ort.DynamicAdvancedSession, name string, in []ort.Value) (*ort.Tensor[float32], error) {
	out := []ort.Value{nil}
	if err := s.Run(in, out); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	t, ok := out[0].(*ort.Tensor[float32])
	if !ok {
		if out[0] != nil {
			out[0].Destroy()
		}
		return nil, fmt.Errorf("%s returned unexpected output type %T", name, out[0])
	}
	return t, nil
}
