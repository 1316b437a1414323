package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindConfig, "load-style", "failed to load voice style",
				errors.New("file not found")),
			contains: []string{"[config:load-style]", "failed to load voice style", "file not found"},
		},
		{
			name:     "error without cause",
			err:      New(KindAssembly, "trim", "duration exceeds buffer"),
			contains: []string{"[assembly:trim]", "duration exceeds buffer"},
		},
		{
			name:     "formatted message",
			err:      Newf(KindInference, "synthesize", "sample rate changed from %d to %d", 44100, 24000),
			contains: []string{"[inference:synthesize]", "44100", "24000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, substr := range tt.contains {
				assert.Contains(t, msg, substr)
			}
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(KindConfig, "op", "msg", nil))
}

func TestWrap_Unwrap(t *testing.T) {
	original := errors.New("original error")
	wrapped := Wrap(KindExtraction, "extract", "pdftotext failed", original)

	assert.ErrorIs(t, wrapped, original)
}

func TestWrap_KeepsFirstKind(t *testing.T) {
	inner := New(KindAssembly, "trim", "out of bounds")
	outer := Wrap(KindInference, "synthesize", "unit failed", fmt.Errorf("unit 3: %w", inner))

	assert.True(t, IsKind(outer, KindAssembly))
	assert.False(t, IsKind(outer, KindInference))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: New(KindConfig, "op", "msg"), want: KindConfig},
		{name: "wrapped by fmt", err: fmt.Errorf("outer: %w", New(KindExtraction, "op", "msg")), want: KindExtraction},
		{name: "plain error", err: errors.New("plain"), want: KindUnknown},
		{name: "nil", err: nil, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
