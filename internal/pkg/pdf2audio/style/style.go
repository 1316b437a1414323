// Package style loads voice style vectors and validates their shape against
// what the inference backend expects.
package style

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
)

// Dims is the shape of one style block, [1, Tokens, Width].
type Dims struct {
	Tokens int
	Width  int
}

func (d Dims) Len() int {
	return d.Tokens * d.Width
}

func (d Dims) String() string {
	return fmt.Sprintf("[1 %d %d]", d.Tokens, d.Width)
}

// Shape describes both conditioning blocks of a voice style.
type Shape struct {
	TTL Dims
	DP  Dims
}

func (s Shape) IsZero() bool {
	return s == Shape{}
}

// Vector is an immutable voice identity. Accessors hand out copies.
type Vector struct {
	name  string
	shape Shape
	ttl   []float32
	dp    []float32
}

// New builds a Vector from flattened blocks. The data is copied.
func New(name string, shape Shape, ttl, dp []float32) (*Vector, error) {
	if len(ttl) != shape.TTL.Len() || shape.TTL.Len() == 0 {
		return nil, fmt.Errorf("style_ttl has %d values, shape %s needs %d", len(ttl), shape.TTL, shape.TTL.Len())
	}
	if len(dp) != shape.DP.Len() || shape.DP.Len() == 0 {
		return nil, fmt.Errorf("style_dp has %d values, shape %s needs %d", len(dp), shape.DP, shape.DP.Len())
	}
	return &Vector{
		name:  name,
		shape: shape,
		ttl:   slices.Clone(ttl),
		dp:    slices.Clone(dp),
	}, nil
}

func (v *Vector) Name() string {
	return v.name
}

func (v *Vector) Shape() Shape {
	return v.shape
}

func (v *Vector) TTL() []float32 {
	return slices.Clone(v.ttl)
}

func (v *Vector) DP() []float32 {
	return slices.Clone(v.dp)
}

// Equal reports bit-for-bit equality of two vectors.
func (v *Vector) Equal(o *Vector) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.name == o.name && v.shape == o.shape && bitsEqual(v.ttl, o.ttl) && bitsEqual(v.dp, o.dp)
}

func bitsEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

// LoadError reports a style file that is missing, malformed or has the wrong
// dimensionality.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load voice style %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a voice style file. The format is picked by extension: .json,
// .yaml/.yml or .npz. When want is non-zero the loaded shape must match it
// exactly. Every failure is a *LoadError classified as a configuration error.
func Load(path string, want Shape) (*Vector, error) {
	v, err := load(path)
	if err == nil && !want.IsZero() && v.shape != want {
		err = fmt.Errorf("shape mismatch: got ttl %s dp %s, model expects ttl %s dp %s",
			v.shape.TTL, v.shape.DP, want.TTL, want.DP)
	}
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindConfig, "load-style", "unusable voice style",
			&LoadError{Path: path, Err: err})
	}
	return v, nil
}

func load(path string) (*Vector, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read style file: %w", err)
		}
		var doc document
		if err := decodeDocument(path, data, &doc); err != nil {
			return nil, err
		}
		name := doc.Name
		if name == "" {
			name = stem
		}
		return doc.vector(name)
	case ".npz":
		return loadNPZ(path, stem)
	default:
		return nil, fmt.Errorf("unsupported style file extension %q", filepath.Ext(path))
	}
}
