package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	cfg Config
}

func (s *stubEngine) Synthesize(context.Context, Request) (*Result, error) { return nil, nil }
func (s *stubEngine) Info() Info                                           { return Info{Name: "stub"} }
func (s *stubEngine) ResetScratchBuffers()                                 {}
func (s *stubEngine) StartRun(context.Context) (func(), error)             { return func() {}, nil }
func (s *stubEngine) Close() error                                         { return nil }

func TestRegistry(t *testing.T) {
	Register("stub-registry", func(cfg Config) (Engine, error) {
		return &stubEngine{cfg: cfg}, nil
	})

	assert.True(t, IsRegistered("stub-registry"))
	assert.Contains(t, Backends(), "stub-registry")

	eng, err := New("stub-registry", Config{ModelDir: "models"})
	require.NoError(t, err)

	stub := eng.(*stubEngine)
	assert.Equal(t, "stub-registry", stub.cfg.Backend)
	assert.Equal(t, "models", stub.cfg.ModelDir)
	assert.Equal(t, 1, stub.cfg.Workers)
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := New("no-such-backend", Config{})
	assert.ErrorContains(t, err, "no-such-backend")
	assert.False(t, IsRegistered("no-such-backend"))
}

func TestRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { Register("nil-factory", nil) })

	Register("twice", func(Config) (Engine, error) { return &stubEngine{}, nil })
	assert.Panics(t, func() {
		Register("twice", func(Config) (Engine, error) { return &stubEngine{}, nil })
	})
}

func TestResult_ReleaseOnce(t *testing.T) {
	calls := 0
	r := NewResult(make([]float32, 4), 0.5, 4, func() { calls++ })

	r.Release()
	r.Release()

	assert.Equal(t, 1, calls)
	assert.Nil(t, r.Buffer)
}

func TestResult_ReleaseWithoutHook(t *testing.T) {
	r := NewResult(make([]float32, 4), 0.5, 4, nil)

	assert.NotPanics(t, r.Release)
}
