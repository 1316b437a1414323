package engine

import (
	"context"
	"sync"

	"pdf2audio/internal/pkg/pdf2audio/chunker"
	"pdf2audio/internal/pkg/pdf2audio/style"
)

// Engine runs one text unit through the model per call.
//
// A Result holds one of the engine's scratch buffers until Release is called,
// so callers must release every result they receive. ResetScratchBuffers
// blocks until all outstanding results are released.
//
// Jobs sharing an engine go through StartRun. It waits until the previous job
// has ended, resets the scratch buffers and returns the func that ends the
// job. End the job only after every Result of it has been released.
type Engine interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Info() Info
	ResetScratchBuffers()
	StartRun(ctx context.Context) (end func(), err error)
	Close() error
}

type Info struct {
	Name       string
	Languages  []string
	SampleRate int
	StyleShape style.Shape
}

type Request struct {
	Unit      chunker.Unit
	Style     *style.Vector
	TotalStep int
	Speed     float32
}

// Result is the raw output of a single inference call. Buffer has fixed
// capacity and is only valid up to Duration*SampleRate samples.
type Result struct {
	Buffer     []float32
	Duration   float64
	SampleRate int

	once    sync.Once
	release func()
}

func NewResult(buffer []float32, duration float64, sampleRate int, release func()) *Result {
	return &Result{
		Buffer:     buffer,
		Duration:   duration,
		SampleRate: sampleRate,
		release:    release,
	}
}

// Release hands the buffer back to the engine. Buffer must not be read
// afterwards. Calling Release more than once is a no-op.
func (r *Result) Release() {
	r.once.Do(func() {
		if r.release != nil {
			r.release()
		}
		r.Buffer = nil
	})
}

type Config struct {
	ModelDir string
	// Workers is the number of scratch buffers, which bounds how many
	// Synthesize calls may be in flight. Values below 1 mean 1.
	Workers int
	// Seed for the latent noise generators; 0 picks a time-based seed.
	Seed     uint64
	Language string
	Backend  string
}
