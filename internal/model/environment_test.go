package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	initialized bool
	initErr     error
	inits       int
	destroys    int
	libraries   []string
}

func (f *fakeRuntime) environment() *environment {
	return &environment{
		isInitialized: func() bool { return f.initialized },
		initialize: func(lib string) error {
			f.libraries = append(f.libraries, lib)
			if f.initErr != nil {
				return f.initErr
			}
			f.inits++
			f.initialized = true
			return nil
		},
		destroy: func() error {
			f.destroys++
			f.initialized = false
			return nil
		},
	}
}

func TestEnvironmentSharedBetweenServers(t *testing.T) {
	rt := &fakeRuntime{}
	env := rt.environment()

	require.NoError(t, env.acquire("/opt/onnxruntime.so"))
	require.NoError(t, env.acquire(""))
	assert.Equal(t, 1, rt.inits)
	assert.Equal(t, []string{"/opt/onnxruntime.so"}, rt.libraries)

	// Closing the first server keeps the runtime up for the second.
	require.NoError(t, env.release())
	assert.Zero(t, rt.destroys)
	assert.True(t, rt.initialized)

	require.NoError(t, env.release())
	assert.Equal(t, 1, rt.destroys)
	assert.False(t, rt.initialized)
}

func TestEnvironmentInitializedElsewhereIsNotDestroyed(t *testing.T) {
	rt := &fakeRuntime{initialized: true}
	env := rt.environment()

	require.NoError(t, env.acquire(""))
	require.NoError(t, env.release())

	assert.Zero(t, rt.inits)
	assert.Zero(t, rt.destroys)
	assert.True(t, rt.initialized)
}

func TestEnvironmentFailedInitializeHoldsNoReference(t *testing.T) {
	rt := &fakeRuntime{initErr: errors.New("libonnxruntime.so: cannot open shared object file")}
	env := rt.environment()

	require.Error(t, env.acquire("libonnxruntime.so"))
	require.NoError(t, env.release())
	assert.Zero(t, rt.destroys)

	// A later load can still initialize the runtime.
	rt.initErr = nil
	require.NoError(t, env.acquire(""))
	assert.Equal(t, 1, rt.inits)
}

func TestEnvironmentReleaseAfterFailedLoad(t *testing.T) {
	rt := &fakeRuntime{}
	env := rt.environment()

	// NewServer acquires, then fails creating tensors and releases.
	require.NoError(t, env.acquire(""))
	require.NoError(t, env.release())

	assert.Equal(t, 1, rt.destroys)
	assert.False(t, rt.initialized)
}
