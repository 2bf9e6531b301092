package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
	"github.com/spaghettifunk/prism/engine/renderer/software"
	"github.com/spaghettifunk/prism/engine/systems"
)

const (
	targetFrameSeconds float64 = 1.0 / 60.0
	// longest step handed to the game, so a stall does not teleport the scene
	maxFrameSeconds float64 = 0.25
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *config.Config
	isRunning     atomic.Bool
	isSuspended   atomic.Bool
	platform      *platform.Platform
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine needs a game instance")
	}
	if g.Config == nil {
		g.Config = config.Default()
	}
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.Config,
		clock:        core.NewClock(),
		width:        g.Config.Window.Width,
		height:       g.Config.Window.Height,
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// SystemManager is available once Initialize succeeded.
func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	if err := core.SetLogLevel(e.config.Log.Level); err != nil {
		return err
	}

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}
	// initialize events
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	backend, err := e.createBackend()
	if err != nil {
		return err
	}

	// initialize subsystems
	if err := e.initializeAssets(); err != nil {
		return err
	}
	sm, err := systems.NewSystemManager(backend, e.assetManager)
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	if err := sm.BuildScene(e.config); err != nil {
		return err
	}
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if err := e.resize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s backend", backend.Name())
	return nil
}

func (e *Engine) createBackend() (renderer.RendererBackend, error) {
	switch e.config.Renderer.Backend {
	case config.BackendSoftware:
		return software.New(), nil
	default:
		e.platform = platform.New()
		w := e.config.Window
		if err := e.platform.Startup(w.Title, w.X, w.Y, w.Width, w.Height, w.VSync); err != nil {
			return nil, err
		}
		e.width, e.height = e.platform.FramebufferSize()
		return opengl.New()
	}
}

func (e *Engine) initializeAssets() error {
	dir := e.config.Assets.Dir
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		core.LogWarn("asset directory '%s' not found, using embedded shaders only", dir)
		return nil
	}
	am := assets.NewAssetManager()
	if err := am.Initialize(dir, e.config.Assets.Watch); err != nil {
		return err
	}
	e.assetManager = am
	return nil
}

// Run drives the frame loop until the window closes, the frame limit is
// reached, Stop is called or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run from stage '%s'", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := e.config.Renderer.MaxFrames
	var frames uint64

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("stopping: %s", context.Cause(ctx))
			e.isRunning.Store(false)
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended.Load() {
			time.Sleep(time.Duration(targetFrameSeconds * float64(time.Second)))
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := math.Clamp(currentTime-e.lastTime, 0, maxFrameSeconds)

		if err := e.frame(delta); err != nil {
			e.isRunning.Store(false)
			return err
		}

		frames++
		if maxFrames > 0 && frames >= maxFrames {
			core.LogInfo("reached the frame limit of %d", maxFrames)
			e.isRunning.Store(false)
		}

		// Figure out how long the frame took and give the rest back to the OS
		// when the swap does not already wait for the display.
		e.clock.Update()
		remaining := targetFrameSeconds - (e.clock.Elapsed() - currentTime)
		if remaining > 0 && (e.platform == nil || !e.config.Window.VSync) {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		core.InputUpdate(delta)

		// Update last time
		e.lastTime = currentTime
	}

	fps, frameTime := e.systemManager.Metrics().Frame()
	total, failed := e.systemManager.Metrics().Draws()
	core.LogInfo("rendered %d frames (%.1f fps, %.2f ms), %d of %d draws failed", frames, fps, frameTime, failed, total)
	return nil
}

func (e *Engine) frame(delta float64) error {
	if fn := e.gameInstance.FnUpdate; fn != nil {
		if err := fn(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			return err
		}
	}

	if err := e.systemManager.DrawFrame(delta); err != nil {
		core.LogError("draw frame failed, shutting down: %s", err)
		return err
	}

	// Call the game's render routine.
	if fn := e.gameInstance.FnRender; fn != nil {
		if err := fn(delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			return err
		}
	}

	if e.platform != nil {
		e.platform.SwapBuffers()
	}
	return nil
}

// Stop ends the run loop after the current frame. It is safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases every resource. It must run on the goroutine that ran
// Initialize, which owns the rendering context.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if fn := e.gameInstance.FnShutdown; fn != nil {
		errs = append(errs, fn())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Close())
	}
	errs = append(errs, core.EventShutdown(), core.InputShutdown())
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}

	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}

func (e *Engine) resize(width, height uint32) error {
	e.width, e.height = width, height
	if width == 0 || height == 0 {
		// minimized
		e.isSuspended.Store(true)
		return nil
	}
	e.isSuspended.Store(false)
	if err := e.systemManager.Resize(width, height); err != nil {
		return err
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		return fn(width, height)
	}
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if core.KeyCode(data.Data.U32[0]) == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	core.LogDebug("window resize: %d, %d", width, height)
	if err := e.resize(width, height); err != nil {
		core.LogError("resize failed: %s", err)
	}
	// Event purposely not handled to allow other listeners to get this.
	return false
}
