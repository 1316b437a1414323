package supertonic

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"pdf2audio/internal/pkg/pdf2audio/style"
)

const (
	configFile  = "tts.json"
	indexerFile = "unicode_indexer.json"
)

type styleTokenLayer struct {
	NStyle        int `json:"n_style"`
	StyleValueDim int `json:"style_value_dim"`
}

type styleEncoder struct {
	StyleTokenLayer styleTokenLayer `json:"style_token_layer"`
}

// modelConfig is the subset of tts.json the pipeline needs.
type modelConfig struct {
	AE struct {
		SampleRate    int `json:"sample_rate"`
		BaseChunkSize int `json:"base_chunk_size"`
	} `json:"ae"`
	TTL struct {
		ChunkCompressFactor int          `json:"chunk_compress_factor"`
		LatentDim           int          `json:"latent_dim"`
		StyleEncoder        styleEncoder `json:"style_encoder"`
	} `json:"ttl"`
	DP struct {
		StyleEncoder styleEncoder `json:"style_encoder"`
	} `json:"dp"`
}

func loadModelConfig(modelDir string) (*modelConfig, error) {
	path := filepath.Join(modelDir, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg modelConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *modelConfig) validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"ae.sample_rate", c.AE.SampleRate},
		{"ae.base_chunk_size", c.AE.BaseChunkSize},
		{"ttl.chunk_compress_factor", c.TTL.ChunkCompressFactor},
		{"ttl.latent_dim", c.TTL.LatentDim},
		{"ttl.style_encoder.style_token_layer.n_style", c.TTL.StyleEncoder.StyleTokenLayer.NStyle},
		{"ttl.style_encoder.style_token_layer.style_value_dim", c.TTL.StyleEncoder.StyleTokenLayer.StyleValueDim},
		{"dp.style_encoder.style_token_layer.n_style", c.DP.StyleEncoder.StyleTokenLayer.NStyle},
		{"dp.style_encoder.style_token_layer.style_value_dim", c.DP.StyleEncoder.StyleTokenLayer.StyleValueDim},
	}
	for _, chk := range checks {
		if chk.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", chk.name, chk.value)
		}
	}
	return nil
}

// chunkSize is the number of waveform samples produced per latent frame.
func (c *modelConfig) chunkSize() int {
	return c.AE.BaseChunkSize * c.TTL.ChunkCompressFactor
}

func (c *modelConfig) latentChannels() int {
	return c.TTL.LatentDim * c.TTL.ChunkCompressFactor
}

func (c *modelConfig) styleShape() style.Shape {
	ttl := c.TTL.StyleEncoder.StyleTokenLayer
	dp := c.DP.StyleEncoder.StyleTokenLayer
	return style.Shape{
		TTL: style.Dims{Tokens: ttl.NStyle, Width: ttl.StyleValueDim},
		DP:  style.Dims{Tokens: dp.NStyle, Width: dp.StyleValueDim},
	}
}
