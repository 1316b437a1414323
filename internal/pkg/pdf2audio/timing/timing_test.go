package timing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure_ReturnsResult(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	got, err := Measure(context.Background(), logger, "synthesis", func(ctx context.Context) (int, error) {
		require.NotNil(t, ctx)
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Contains(t, buf.String(), `"phase":"synthesis"`)
	assert.Contains(t, buf.String(), `"elapsed_sec"`)
	assert.Contains(t, buf.String(), `"message":"Finished"`)
}

func TestMeasure_PropagatesError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	boom := errors.New("boom")

	_, err := Measure(context.Background(), logger, "extract", func(context.Context) (string, error) {
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestResidentBytes(t *testing.T) {
	rss, ok := residentBytes()
	if !ok {
		t.Skip("process memory info unavailable")
	}
	assert.Greater(t, rss, uint64(0))
}
