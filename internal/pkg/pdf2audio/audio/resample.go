package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts the waveform to rate. It returns a new Audio and leaves a
// untouched. Equal rates and empty waveforms are copied as-is.
func (a *Audio) Resample(rate int) (*Audio, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid target sample rate %d", rate)
	}
	if rate == a.SampleRate || a.Empty() {
		samples := make([]float32, len(a.Samples))
		copy(samples, a.Samples)
		return NewAudio(samples, rate), nil
	}
	if a.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid source sample rate %d", a.SampleRate)
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(a.SampleRate),
		OutputRate: float64(rate),
		Channels:   NumChannels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(a.Samples))
	for i, s := range a.Samples {
		input[i] = float64(s)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	samples := make([]float32, len(output))
	for i, s := range output {
		samples[i] = float32(s)
	}
	return NewAudio(samples, rate), nil
}
