package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned by Trim when the predicted duration does not fit
// the buffer it describes.
var ErrOutOfBounds = errors.New("predicted duration exceeds buffer capacity")

// Segment is a read-only view of the valid prefix of a fixed-capacity model
// buffer. Reads past the predicted duration are not expressible.
type Segment struct {
	samples []float32
}

// ValidSamples converts a predicted duration into a sample count, truncating
// toward zero.
func ValidSamples(duration float64, sampleRate int) int {
	return int(duration * float64(sampleRate))
}

// Trim returns the view buffer[0 : duration*sampleRate). It fails with
// ErrOutOfBounds when the count is negative, not finite or larger than the
// buffer.
func Trim(buffer []float32, duration float64, sampleRate int) (Segment, error) {
	if sampleRate <= 0 {
		return Segment{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return Segment{}, fmt.Errorf("%w: duration %v", ErrOutOfBounds, duration)
	}
	n := ValidSamples(duration, sampleRate)
	if n > len(buffer) {
		return Segment{}, fmt.Errorf("%w: %d samples predicted, buffer holds %d", ErrOutOfBounds, n, len(buffer))
	}
	return Segment{samples: buffer[:n:n]}, nil
}

func (s Segment) Len() int {
	return len(s.samples)
}

func (s Segment) At(i int) float32 {
	return s.samples[i]
}

// AppendTo copies the segment onto dst. The result never aliases the
// underlying model buffer.
func (s Segment) AppendTo(dst []float32) []float32 {
	return append(dst, s.samples...)
}

// Clone returns an owned copy of the segment.
func (s Segment) Clone() Segment {
	return Segment{samples: s.AppendTo(make([]float32, 0, len(s.samples)))}
}

func (s Segment) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(s.samples)) / float64(sampleRate)
}
