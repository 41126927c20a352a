package cmd

import (
	"testing"

	"github.com/birun/console/pkg/persistence/file"
	"github.com/birun/console/pkg/persistence/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	client, err := NewClient("https://ops.example.com", "", nil, nil)
	require.NoError(t, err)

	p, err := NewPersistence("file://"+t.TempDir(), nil)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	p, err = NewPersistence("", client)
	require.NoError(t, err)
	assert.IsType(t, &remote.Persistence{}, p)

	p, err = NewPersistence("https://ops.example.com", client)
	require.NoError(t, err)
	assert.IsType(t, &remote.Persistence{}, p)

	_, err = NewPersistence("https://ops.example.com", nil)
	require.ErrorIs(t, err, ErrUnsupportedURL)

	_, err = NewPersistence("postgres://localhost/db", client)
	require.ErrorIs(t, err, ErrUnsupportedURL)

	_, err = NewPersistence("/tmp/workflows", client)
	require.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := NewTracer(t.Context(), false)
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, shutdown(t.Context()))
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, bus.GenerateID())
	assert.NoError(t, bus.Close())
}
