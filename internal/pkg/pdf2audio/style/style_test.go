package style

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
)

var testShape = Shape{
	TTL: Dims{Tokens: 2, Width: 3},
	DP:  Dims{Tokens: 1, Width: 2},
}

const jsonStyle = `{
  "style_ttl": {"data": [[[0.1, 0.2, 0.3], [0.4, 0.5, 0.6]]], "dims": [1, 2, 3], "type": "float32"},
  "style_dp": {"data": [[[-1.0, 2.5]]], "dims": [1, 1, 2], "type": "float32"}
}`

const yamlStyle = `name: narrator
style_ttl:
  dims: [1, 2, 3]
  type: float32
  data:
    - - [0.1, 0.2, 0.3]
      - [0.4, 0.5, 0.6]
style_dp:
  dims: [1, 1, 2]
  data:
    - - [-1.0, 2.5]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "M1.json", jsonStyle)

	v, err := Load(path, testShape)
	require.NoError(t, err)

	assert.Equal(t, "M1", v.Name())
	assert.Equal(t, testShape, v.Shape())
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, v.TTL())
	assert.Equal(t, []float32{-1, 2.5}, v.DP())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "voice.yaml", yamlStyle)

	v, err := Load(path, Shape{})
	require.NoError(t, err)

	assert.Equal(t, "narrator", v.Name())
	assert.Equal(t, testShape, v.Shape())
	assert.Equal(t, []float32{-1, 2.5}, v.DP())
}

func TestLoad_JSONAndYAMLAgree(t *testing.T) {
	j, err := Load(writeFile(t, "a.json", jsonStyle), testShape)
	require.NoError(t, err)
	y, err := Load(writeFile(t, "a.yml", yamlStyle), testShape)
	require.NoError(t, err)

	assert.Equal(t, j.TTL(), y.TTL())
	assert.Equal(t, j.DP(), y.DP())
}

func TestLoad_Idempotent(t *testing.T) {
	path := writeFile(t, "M1.json", jsonStyle)

	a, err := Load(path, testShape)
	require.NoError(t, err)
	b, err := Load(path, testShape)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestVector_AccessorsCopy(t *testing.T) {
	v, err := Load(writeFile(t, "M1.json", jsonStyle), testShape)
	require.NoError(t, err)

	ttl := v.TTL()
	ttl[0] = 42

	assert.Equal(t, float32(0.1), v.TTL()[0])
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    Shape
	}{
		{name: "dims mismatch", file: "s.json", content: jsonStyle, want: Shape{TTL: Dims{50, 256}, DP: Dims{8, 16}}},
		{name: "malformed json", file: "s.json", content: `{"style_ttl": `},
		{name: "missing dp", file: "s.json", content: `{"style_ttl": {"data": [[[1]]], "dims": [1, 1, 1]}}`},
		{name: "data disagrees with dims", file: "s.json", content: `{
			"style_ttl": {"data": [[[1, 2]]], "dims": [1, 1, 3]},
			"style_dp": {"data": [[[1]]], "dims": [1, 1, 1]}}`},
		{name: "batch dimension", file: "s.json", content: `{
			"style_ttl": {"data": [[[1]], [[2]]], "dims": [2, 1, 1]},
			"style_dp": {"data": [[[1]]], "dims": [1, 1, 1]}}`},
		{name: "wrong rank", file: "s.json", content: `{
			"style_ttl": {"data": [[[1]]], "dims": [1, 1]},
			"style_dp": {"data": [[[1]]], "dims": [1, 1, 1]}}`},
		{name: "malformed yaml", file: "s.yaml", content: "style_ttl: [unterminated"},
		{name: "unknown extension", file: "s.txt", content: jsonStyle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			_, err := Load(path, tt.want)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, path, loadErr.Path)
			assert.True(t, pdferrors.IsKind(err, pdferrors.KindConfig))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := Load(path, testShape)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, pdferrors.IsKind(err, pdferrors.KindConfig))
}

func TestNew_RejectsLengthMismatch(t *testing.T) {
	_, err := New("x", testShape, make([]float32, 5), make([]float32, 2))
	assert.Error(t, err)

	_, err = New("x", testShape, make([]float32, 6), make([]float32, 3))
	assert.Error(t, err)
}

func TestLoad_NPZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "F2.npz")
	writeNPZ(t, path, map[string]npyFixture{
		"style_ttl.npy": {descr: "<f4", shape: []int{1, 2, 3}, f32: []float32{1, 2, 3, 4, 5, 6}},
		"style_dp.npy":  {descr: "<f2", shape: []int{1, 1, 2}, f16: []uint16{0x3c00, 0xc000}},
	})

	v, err := Load(path, testShape)
	require.NoError(t, err)

	assert.Equal(t, "F2", v.Name())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, v.TTL())
	assert.Equal(t, []float32{1, -2}, v.DP())
}

func TestLoad_NPZMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.npz")
	writeNPZ(t, path, map[string]npyFixture{
		"style_ttl.npy": {descr: "<f4", shape: []int{1, 2, 3}, f32: []float32{1, 2, 3, 4, 5, 6}},
	})

	_, err := Load(path, testShape)

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestHalfToFloat(t *testing.T) {
	tests := []struct {
		in   uint16
		want float32
	}{
		{0x0000, 0},
		{0x3c00, 1},
		{0xc000, -2},
		{0x3800, 0.5},
		{0x7bff, 65504},
		{0x0001, 5.9604645e-08},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, halfToFloat(tt.in), "0x%04x", tt.in)
	}
}

type npyFixture struct {
	descr string
	shape []int
	f32   []float32
	f16   []uint16
}

func writeNPZ(t *testing.T, path string, entries map[string]npyFixture) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, fx := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(encodeNpy(t, fx))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func encodeNpy(t *testing.T, fx npyFixture) []byte {
	t.Helper()

	shape := ""
	for _, d := range fx.shape {
		shape += fmt.Sprintf("%d, ", d)
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", fx.descr, shape)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	if fx.f32 != nil {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, fx.f32))
	}
	if fx.f16 != nil {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, fx.f16))
	}
	return buf.Bytes()
}
