package testbed

import (
	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
)

const (
	// radians per second
	spinSpeed float32 = 1.2
	// normalised device units per second
	cameraMoveSpeed float32 = 0.8
	cameraPanSpeed  float32 = 1.0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	worldCamera *components.Camera
	elapsed     float64
	width       uint32
	height      uint32
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State:  &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	g.state().worldCamera = g.SystemManager.CameraSystem().GetDefault()
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, g, g.onKey)
	return nil
}

// Update spins every configured shape around its own center, since the
// shapes are translated first and then rotated in place. Arrow keys move the
// camera, Q and E pan it, R resets it.
func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.elapsed += deltaTime
	angle := spinSpeed * float32(deltaTime)

	sm := g.SystemManager
	for i, sc := range g.Config.Scene.Shapes {
		id, ok := sm.Node(sc.Tag)
		if !ok || sc.Kind == config.KindGroup {
			continue
		}
		// alternate direction so neighbours counter-rotate
		dir := float32(1)
		if i%2 == 1 {
			dir = -1
		}
		graph := sm.Graph()
		if err := graph.Translate(id, -sc.X, -sc.Y); err != nil {
			return err
		}
		graph.Rotate(id, dir*angle, math.AxisZ)
		graph.Translate(id, sc.X, sc.Y)
	}

	move := cameraMoveSpeed * float32(deltaTime)
	cam := state.worldCamera
	if core.InputIsKeyDown(core.KEY_LEFT) || core.InputIsKeyDown(core.KEY_A) {
		cam.Translate(-move, math.AxisX)
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) || core.InputIsKeyDown(core.KEY_D) {
		cam.Translate(move, math.AxisX)
	}
	if core.InputIsKeyDown(core.KEY_UP) || core.InputIsKeyDown(core.KEY_W) {
		cam.Translate(move, math.AxisY)
	}
	if core.InputIsKeyDown(core.KEY_DOWN) || core.InputIsKeyDown(core.KEY_S) {
		cam.Translate(-move, math.AxisY)
	}
	pan := cameraPanSpeed * float32(deltaTime)
	if core.InputIsKeyDown(core.KEY_Q) {
		cam.Pan(pan, math.AxisY)
	}
	if core.InputIsKeyDown(core.KEY_E) {
		cam.Pan(-pan, math.AxisY)
	}
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width, state.height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, g)
	core.LogInfo("testbed ran for %.1f seconds", g.state().elapsed)
	return nil
}

func (g *TestGame) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if core.KeyCode(data.Data.U32[0]) == core.KEY_R {
		g.state().worldCamera.Reset()
		core.LogDebug("camera reset")
		return true
	}
	return false
}
