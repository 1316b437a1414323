package supertonic

import (
	"context"
	"math/rand/v2"
	"sync"
)

// scratch is one inference context: a noise generator plus reusable latent
// and waveform buffers. It is owned by exactly one call at a time.
type scratch struct {
	id     int
	src    *rand.PCG
	rng    *rand.Rand
	latent []float32
	wav    []float32
}

func newScratch(id int, seed uint64) *scratch {
	src := rand.NewPCG(seed, uint64(id))
	return &scratch{id: id, src: src, rng: rand.New(src)}
}

func (s *scratch) reset(seed uint64) {
	clear(s.latent)
	clear(s.wav)
	s.src.Seed(seed, uint64(s.id))
}

// seedFor restarts the noise stream for one unit. The stream depends only on
// the seed and the unit index, never on which scratch serves the unit.
func (s *scratch) seedFor(seed uint64, unit int) {
	s.src.Seed(seed, uint64(unit))
}

// noise returns n standard normal samples in the scratch latent buffer.
func (s *scratch) noise(n int) []float32 {
	s.latent = grow(s.latent, n)
	for i := range s.latent {
		s.latent[i] = float32(s.rng.NormFloat64())
	}
	return s.latent
}

// waveform returns the scratch waveform buffer resized to n samples.
func (s *scratch) waveform(n int) []float32 {
	s.wav = grow(s.wav, n)
	return s.wav
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

// scratchPool hands out scratches over a buffered channel. A scratch taken by
// acquire stays out of the pool until release. Jobs are serialized by the
// runs semaphore: one job owns the pool from its reset until it ends.
type scratchPool struct {
	free chan *scratch
	runs chan struct{}
	size int
	seed uint64
}

func newScratchPool(size int, seed uint64) *scratchPool {
	if size < 1 {
		size = 1
	}
	p := &scratchPool{
		free: make(chan *scratch, size),
		runs: make(chan struct{}, 1),
		size: size,
		seed: seed,
	}
	for i := range size {
		p.free <- newScratch(i, seed)
	}
	return p
}

func (p *scratchPool) acquire(ctx context.Context) (*scratch, error) {
	select {
	case s := <-p.free:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *scratchPool) release(s *scratch) {
	p.free <- s
}

// begin waits for the previous job to end, then resets the pool for the new
// one. The returned func ends the job and is safe to call more than once.
func (p *scratchPool) begin(ctx context.Context) (func(), error) {
	select {
	case p.runs <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.resetLocked()

	var once sync.Once
	return func() {
		once.Do(func() { <-p.runs })
	}, nil
}

// reset zeroes and reseeds every scratch outside of any job.
func (p *scratchPool) reset() {
	p.runs <- struct{}{}
	defer func() { <-p.runs }()
	p.resetLocked()
}

// resetLocked waits until every scratch is back in the pool, then zeroes and
// reseeds them so the next job starts from a known state. The caller holds
// the runs semaphore.
func (p *scratchPool) resetLocked() {
	all := make([]*scratch, 0, p.size)
	for range p.size {
		all = append(all, <-p.free)
	}
	for _, s := range all {
		s.reset(p.seed)
		p.free <- s
	}
}
