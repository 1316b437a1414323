package style

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const npyMagic = "\x93NUMPY"

var (
	descrRe   = regexp.MustCompile(`['"]descr['"]\s*:\s*['"]([^'"]+)['"]`)
	shapeRe   = regexp.MustCompile(`['"]shape['"]\s*:\s*\(([^)]*)\)`)
	fortranRe = regexp.MustCompile(`['"]fortran_order['"]\s*:\s*True`)
)

// loadNPZ reads an archive holding style_ttl.npy and style_dp.npy, each of
// shape (1, tokens, width).
func loadNPZ(path, name string) (*Vector, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NPZ file: %w", err)
	}
	defer r.Close()

	arrays := make(map[string]npyArray, 2)
	for _, f := range r.File {
		key := strings.TrimSuffix(f.Name, ".npy")
		if key != "style_ttl" && key != "style_dp" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		arr, err := readNpy(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		arrays[key] = arr
	}

	ttl, ok := arrays["style_ttl"]
	if !ok {
		return nil, errors.New("missing style_ttl")
	}
	dp, ok := arrays["style_dp"]
	if !ok {
		return nil, errors.New("missing style_dp")
	}

	ttlDims, err := dimsOf(ttl.shape)
	if err != nil {
		return nil, fmt.Errorf("style_ttl: %w", err)
	}
	dpDims, err := dimsOf(dp.shape)
	if err != nil {
		return nil, fmt.Errorf("style_dp: %w", err)
	}
	return New(name, Shape{TTL: ttlDims, DP: dpDims}, ttl.data, dp.data)
}

type npyArray struct {
	shape []int64
	data  []float32
}

// readNpy decodes a little-endian, C-ordered float NPY stream.
func readNpy(r io.Reader) (npyArray, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return npyArray{}, fmt.Errorf("failed to read preamble: %w", err)
	}
	if string(pre[:6]) != npyMagic {
		return npyArray{}, errors.New("invalid NPY magic number")
	}

	var headerLen uint32
	switch pre[6] {
	case 1:
		var hl uint16
		if err := binary.Read(r, binary.LittleEndian, &hl); err != nil {
			return npyArray{}, fmt.Errorf("failed to read header length: %w", err)
		}
		headerLen = uint32(hl)
	case 2, 3:
		if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
			return npyArray{}, fmt.Errorf("failed to read header length: %w", err)
		}
	default:
		return npyArray{}, fmt.Errorf("unsupported NPY version %d", pre[6])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return npyArray{}, fmt.Errorf("failed to read header: %w", err)
	}

	descr, shape, err := parseHeader(string(header))
	if err != nil {
		return npyArray{}, err
	}

	count := 1
	for _, d := range shape {
		count *= int(d)
	}

	out := make([]float32, count)
	switch descr {
	case "<f2":
		raw := make([]uint16, count)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return npyArray{}, fmt.Errorf("failed to read float16 data: %w", err)
		}
		for i, h := range raw {
			out[i] = halfToFloat(h)
		}
	case "<f4":
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return npyArray{}, fmt.Errorf("failed to read float32 data: %w", err)
		}
	case "<f8":
		raw := make([]float64, count)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return npyArray{}, fmt.Errorf("failed to read float64 data: %w", err)
		}
		for i, v := range raw {
			out[i] = float32(v)
		}
	default:
		return npyArray{}, fmt.Errorf("unsupported dtype %q", descr)
	}

	return npyArray{shape: shape, data: out}, nil
}

func parseHeader(header string) (string, []int64, error) {
	if fortranRe.MatchString(header) {
		return "", nil, errors.New("fortran-ordered arrays are not supported")
	}

	m := descrRe.FindStringSubmatch(header)
	if m == nil {
		return "", nil, errors.New("dtype not found in header")
	}
	descr := m[1]

	m = shapeRe.FindStringSubmatch(header)
	if m == nil {
		return "", nil, errors.New("shape not found in header")
	}

	var shape []int64
	for _, p := range strings.Split(m[1], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := strconv.ParseInt(p, 10, 64)
		if err != nil || d < 0 {
			return "", nil, fmt.Errorf("invalid dimension %q", p)
		}
		shape = append(shape, d)
	}
	return descr, shape, nil
}

// halfToFloat widens an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := float32(1)
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h>>10) & 0x1f
	frac := float64(h & 0x3ff)

	switch exp {
	case 0:
		return sign * float32(math.Ldexp(frac, -24))
	case 0x1f:
		if frac != 0 {
			return float32(math.NaN())
		}
		return sign * float32(math.Inf(1))
	}
	return sign * float32(math.Ldexp(1024+frac, exp-25))
}
