package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hummingbird/internal/config"
	pkgerrors "hummingbird/pkg/errors"
)

func TestOpenAndClose(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	conf, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)

	a, err := Open(context.Background(), conf)
	require.NoError(t, err)

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Index)
	assert.NotNil(t, a.Resolver)
	assert.NotNil(t, a.Feeder)
	assert.NotNil(t, a.Summaries)
	assert.NotNil(t, a.Ingestor)
	assert.Equal(t, conf.EmbeddingDim, a.Index.Stats().Dimension)

	a.Close()

	// The data directory is reusable once the first instance is gone.
	b, err := Open(context.Background(), conf)
	require.NoError(t, err)
	b.Close()
}

func TestSecondInstanceLockedOut(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	conf, err := config.NewConfig(t.TempDir())
	require.NoError(t, err)

	a, err := Open(context.Background(), conf)
	require.NoError(t, err)
	defer a.Close()

	_, err = Open(context.Background(), conf)
	assert.True(t, errors.Is(err, pkgerrors.ErrIndexLocked))
}
