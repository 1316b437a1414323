package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	NumChannels       = 1
	DefaultBitDepth   = 16
	pcmFormat         = 1
	silenceSampleRate = 44100
)

type Audio struct {
	Samples    []float32
	SampleRate int
}

func NewAudio(samples []float32, sampleRate int) *Audio {
	return &Audio{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

// Append adds seg to the end of the waveform.
func (a *Audio) Append(seg Segment) {
	a.Samples = seg.AppendTo(a.Samples)
}

// AppendSilence adds seconds of zero samples.
func (a *Audio) AppendSilence(seconds float64) {
	n := ValidSamples(seconds, a.SampleRate)
	if n <= 0 {
		return
	}
	a.Samples = append(a.Samples, make([]float32, n)...)
}

func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

func (a *Audio) Empty() bool {
	return len(a.Samples) == 0
}

// SaveWAV writes a mono linear PCM WAV file with the given bit depth (16 or
// 32). The file is written next to path under a temporary name and renamed
// into place once complete, so a failed write never leaves a partial file.
func (a *Audio) SaveWAV(path string, bitDepth int) error {
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	if bitDepth != 16 && bitDepth != 32 {
		return fmt.Errorf("unsupported bit depth %d (want 16 or 32)", bitDepth)
	}
	sampleRate := a.SampleRate
	if sampleRate <= 0 {
		if !a.Empty() {
			return fmt.Errorf("invalid sample rate %d", a.SampleRate)
		}
		sampleRate = silenceSampleRate
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := wav.NewEncoder(f, sampleRate, bitDepth, NumChannels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Data:           quantize(a.Samples, bitDepth),
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: NumChannels},
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	if err := f.Chmod(outputMode); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return fmt.Errorf("failed to move wav into place: %w", err)
	}
	committed = true
	return nil
}

// CreateTemp opens files as 0600; outputs get the usual 0644.
const outputMode os.FileMode = 0o644

func quantize(samples []float32, bitDepth int) []int {
	scale := float64(math.MaxInt16)
	if bitDepth == 32 {
		scale = float64(math.MaxInt32)
	}

	out := make([]int, len(samples))
	for i, sample := range samples {
		clamped := float64(sample)
		if clamped > 1.0 {
			clamped = 1.0
		} else if clamped < -1.0 {
			clamped = -1.0
		}
		out[i] = int(clamped * scale)
	}
	return out
}
