package style

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// block mirrors one tensor entry of a style file:
//
//	{"data": [[[...]]], "dims": [1, tokens, width], "type": "float32"}
type block struct {
	Data [][][]float64 `json:"data" yaml:"data"`
	Dims []int64       `json:"dims" yaml:"dims"`
	Type string        `json:"type,omitempty" yaml:"type,omitempty"`
}

type document struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	TTL  *block `json:"style_ttl" yaml:"style_ttl"`
	DP   *block `json:"style_dp" yaml:"style_dp"`
}

func decodeDocument(path string, data []byte, doc *document) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = sonic.Unmarshal(data, doc)
	default:
		err = yaml.Unmarshal(data, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse style file: %w", err)
	}
	return nil
}

func (d *document) vector(name string) (*Vector, error) {
	if d.TTL == nil {
		return nil, errors.New("missing style_ttl")
	}
	if d.DP == nil {
		return nil, errors.New("missing style_dp")
	}

	ttlDims, ttl, err := d.TTL.flatten()
	if err != nil {
		return nil, fmt.Errorf("style_ttl: %w", err)
	}
	dpDims, dp, err := d.DP.flatten()
	if err != nil {
		return nil, fmt.Errorf("style_dp: %w", err)
	}

	return New(name, Shape{TTL: ttlDims, DP: dpDims}, ttl, dp)
}

func (b *block) flatten() (Dims, []float32, error) {
	dims, err := dimsOf(b.Dims)
	if err != nil {
		return Dims{}, nil, err
	}
	if b.Type != "" && b.Type != "float32" && b.Type != "float64" {
		return Dims{}, nil, fmt.Errorf("unsupported type %q", b.Type)
	}

	if len(b.Data) != 1 {
		return Dims{}, nil, fmt.Errorf("data has batch size %d, want 1", len(b.Data))
	}
	rows := b.Data[0]
	if len(rows) != dims.Tokens {
		return Dims{}, nil, fmt.Errorf("data has %d rows, dims declare %d", len(rows), dims.Tokens)
	}

	out := make([]float32, 0, dims.Len())
	for i, row := range rows {
		if len(row) != dims.Width {
			return Dims{}, nil, fmt.Errorf("row %d has %d values, dims declare %d", i, len(row), dims.Width)
		}
		for _, v := range row {
			out = append(out, float32(v))
		}
	}
	return dims, out, nil
}

func dimsOf(raw []int64) (Dims, error) {
	if len(raw) != 3 {
		return Dims{}, fmt.Errorf("expected 3 dims, got %v", raw)
	}
	if raw[0] != 1 {
		return Dims{}, fmt.Errorf("expected batch dimension 1, got %d", raw[0])
	}
	if raw[1] <= 0 || raw[2] <= 0 {
		return Dims{}, fmt.Errorf("invalid dims %v", raw)
	}
	return Dims{Tokens: int(raw[1]), Width: int(raw[2])}, nil
}
