package engine

import (
	"context"
	"testing"

	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headlessConfig(maxFrames uint64) *config.Config {
	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendSoftware
	cfg.Renderer.MaxFrames = maxFrames
	cfg.Assets.Dir = ""
	cfg.Log.Level = "error"
	return cfg
}

func TestEngineRunsHeadlessFrames(t *testing.T) {
	var updates, renders int
	var resized [2]uint32
	g := &Game{
		Config:       headlessConfig(3),
		FnUpdate:     func(float64) error { updates++; return nil },
		FnRender:     func(float64) error { renders++; return nil },
		FnOnResize:   func(w, h uint32) error { resized = [2]uint32{w, h}; return nil },
		FnInitialize: func() error { return nil },
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.NotNil(t, g.SystemManager)
	assert.Equal(t, [2]uint32{1280, 720}, resized)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, updates)
	assert.Equal(t, 3, renders)

	total, failed := e.SystemManager().Metrics().Draws()
	assert.Equal(t, uint64(3), total)
	assert.Zero(t, failed)

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	require.NoError(t, e.Shutdown())
}

func TestEngineStopsOnQuitEvent(t *testing.T) {
	frames := 0
	g := &Game{Config: headlessConfig(0)}
	g.FnUpdate = func(float64) error {
		frames++
		if frames == 2 {
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
		}
		return nil
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, frames)
}

func TestEngineStopsOnCancel(t *testing.T) {
	e, err := New(&Game{Config: headlessConfig(0)})
	require.NoError(t, err)

	assert.Error(t, e.Run(context.Background()), "running before Initialize")

	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := headlessConfig(1)
	cfg.Renderer.Backend = "vulkan"
	_, err := New(&Game{Config: cfg})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = New(nil)
	assert.Error(t, err)
}
