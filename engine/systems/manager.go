package systems

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/shapes"
)

var clearColor = [4]float32{0.1, 0.1, 0.12, 1.0}

type SystemManager struct {
	ctx          *renderer.Context
	assetManager *assets.AssetManager
	jobSystem    *JobSystem
	cameraSystem *CameraSystem
	shaderSystem *ShaderSystem
	graph        *scene.Graph
	metrics      *core.Metrics
	decoder      *loaders.ImageLoader
	nodes        map[string]scene.NodeID
}

// NewSystemManager wires the systems around one rendering context. am may be
// nil when no asset directory is used.
func NewSystemManager(backend renderer.RendererBackend, am *assets.AssetManager) (*SystemManager, error) {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}
	js, err := NewJobSystem(workers, 16)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(16)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		ctx:          renderer.NewContext(backend),
		assetManager: am,
		jobSystem:    js,
		cameraSystem: cs,
		shaderSystem: NewShaderSystem(am),
		graph:        scene.NewGraph(),
		metrics:      core.NewMetrics(),
		decoder:      &loaders.ImageLoader{FlipY: true},
		nodes:        make(map[string]scene.NodeID),
	}, nil
}

func (sm *SystemManager) Context() *renderer.Context {
	return sm.ctx
}

func (sm *SystemManager) Graph() *scene.Graph {
	return sm.graph
}

func (sm *SystemManager) Metrics() *core.Metrics {
	return sm.metrics
}

func (sm *SystemManager) CameraSystem() *CameraSystem {
	return sm.cameraSystem
}

func (sm *SystemManager) ShaderSystem() *ShaderSystem {
	return sm.shaderSystem
}

// Node returns the scene node built for a configured shape tag.
func (sm *SystemManager) Node(tag string) (scene.NodeID, bool) {
	id, ok := sm.nodes[tag]
	return id, ok
}

// BuildScene creates every configured shape and group in declaration order.
// Textures are decoded in parallel on the job system; uploads happen on the
// calling goroutine, which owns the context.
func (sm *SystemManager) BuildScene(cfg *config.Config) error {
	if err := sm.shaderSystem.LoadOverrides(); err != nil {
		core.LogWarn("some shader overrides could not be loaded: %s", err)
	}

	images, err := sm.decodeTextures(cfg)
	if err != nil {
		return err
	}

	for i, sc := range cfg.Scene.Shapes {
		if err := sm.addShape(sc, images); err != nil {
			return fmt.Errorf("scene shape %d (%s): %w", i, sc.Tag, err)
		}
	}
	core.LogInfo("scene built with %d nodes", len(cfg.Scene.Shapes))
	return nil
}

func (sm *SystemManager) texturePath(name string) string {
	if filepath.IsAbs(name) || sm.assetManager == nil || sm.assetManager.Root() == "" {
		return name
	}
	return filepath.Join(sm.assetManager.Root(), filepath.FromSlash(name))
}

func (sm *SystemManager) decodeTextures(cfg *config.Config) (map[string]*metadata.ImageResourceData, error) {
	var (
		mu     sync.Mutex
		images = make(map[string]*metadata.ImageResourceData)
		errs   []error
		tasks  []JobTask
	)
	for _, sc := range cfg.Scene.Shapes {
		if sc.Texture == "" {
			continue
		}
		if _, queued := images[sc.Texture]; queued {
			continue
		}
		images[sc.Texture] = nil

		name, path := sc.Texture, sm.texturePath(sc.Texture)
		tasks = append(tasks, JobTask{
			Name: "decode " + name,
			OnStart: func() (interface{}, error) {
				return sm.decoder.Decode(path)
			},
			OnComplete: func(result interface{}) {
				mu.Lock()
				images[name] = result.(*metadata.ImageResourceData)
				mu.Unlock()
			},
			OnFailure: func(err error) {
				mu.Lock()
				errs = append(errs, &renderer.ResourceLoadError{Path: path, Err: err})
				mu.Unlock()
			},
		})
	}
	sm.jobSystem.RunAll(tasks)
	return images, errors.Join(errs...)
}

func (sm *SystemManager) parentOf(sc config.ShapeConfig) (scene.NodeID, error) {
	if sc.Parent == "" {
		return sm.graph.Root(), nil
	}
	p, ok := sm.nodes[sc.Parent]
	if !ok {
		return scene.NodeID{}, fmt.Errorf("unknown parent '%s'", sc.Parent)
	}
	return p, nil
}

func (sm *SystemManager) addShape(sc config.ShapeConfig, images map[string]*metadata.ImageResourceData) error {
	parent, err := sm.parentOf(sc)
	if err != nil {
		return err
	}
	if sc.Kind == config.KindGroup {
		id, err := sm.graph.AddGroup(parent, sc.Tag)
		if err != nil {
			return err
		}
		tag, _ := sm.graph.Tag(id)
		sm.nodes[tag] = id
		return nil
	}

	kind, err := shapes.ParseKind(sc.Kind)
	if err != nil {
		return err
	}
	src := sm.shaderSystem.SourcesFor(kind)
	opts := shapes.Options{
		X:       sc.X,
		Y:       sc.Y,
		Size:    sc.Size,
		Image:   images[sc.Texture],
		Sources: &src,
	}

	var shape *shapes.Shape
	switch kind {
	case shapes.KindTriangle:
		shape, err = shapes.NewTriangle(sm.ctx, opts)
	case shapes.KindSquare:
		shape, err = shapes.NewSquare(sm.ctx, opts)
	case shapes.KindPolygon:
		shape, err = shapes.NewPolygon(sm.ctx, sc.Sides, opts)
	}
	if err != nil {
		return err
	}

	id, err := sm.graph.AddChild(parent, sc.Tag, shape)
	if err != nil {
		shape.Destroy()
		return err
	}
	tag, _ := sm.graph.Tag(id)
	sm.nodes[tag] = id
	sm.shaderSystem.Register(shape)
	return nil
}

// AddShape creates one shape or group at runtime and attaches it to the scene.
func (sm *SystemManager) AddShape(sc config.ShapeConfig) error {
	images := map[string]*metadata.ImageResourceData{}
	if sc.Texture != "" {
		data, err := sm.decoder.Decode(sm.texturePath(sc.Texture))
		if err != nil {
			return &renderer.ResourceLoadError{Path: sc.Texture, Err: err}
		}
		images[sc.Texture] = data
	}
	return sm.addShape(sc, images)
}

// RemoveShape drops a configured shape or group and its subtree, forgetting
// the tags of every removed node.
func (sm *SystemManager) RemoveShape(tag string) error {
	id, ok := sm.nodes[tag]
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrStaleNode, tag)
	}
	if err := sm.graph.Walk(id, func(node scene.NodeID, t string, el scene.Element) {
		if s, ok := el.(*shapes.Shape); ok {
			sm.shaderSystem.Unregister(s)
		}
		if sm.nodes[t] == node {
			delete(sm.nodes, t)
		}
	}); err != nil {
		return err
	}
	return sm.graph.Remove(id)
}

// processChanges applies pending asset events without blocking.
func (sm *SystemManager) processChanges() {
	if sm.assetManager == nil {
		return
	}
	for {
		select {
		case ev, ok := <-sm.assetManager.Changes():
			if !ok {
				return
			}
			if err := sm.shaderSystem.HandleChange(ev); err != nil {
				core.LogWarn("asset change '%s' not applied: %s", ev.Path, err)
			}
		default:
			return
		}
	}
}

// DrawFrame renders the scene once. Draw failures are logged and counted;
// only a lost context is returned, since nothing can be drawn after it.
func (sm *SystemManager) DrawFrame(delta float64) error {
	sm.metrics.Update(delta)
	if sm.ctx.Lost() {
		return renderer.ErrContextLost
	}
	sm.processChanges()

	if err := sm.ctx.Clear(clearColor[0], clearColor[1], clearColor[2], clearColor[3]); err != nil {
		return err
	}
	sm.graph.SetView(sm.cameraSystem.GetDefault().View())

	status := sm.graph.Draw(sm.graph.Root())
	switch status.Outcome {
	case renderer.OutcomeSuccess:
		sm.metrics.RecordDraw("")
	case renderer.OutcomeContextLost:
		sm.metrics.RecordDraw(status.Message)
		core.LogError("rendering context lost")
		return renderer.ErrContextLost
	default:
		sm.metrics.RecordDraw(status.Message)
		core.LogWarn("frame %d draw failed: %s", sm.metrics.TotalFrames(), status.Message)
	}
	return nil
}

// Resize updates the viewport after a framebuffer size change.
func (sm *SystemManager) Resize(width, height uint32) error {
	return sm.ctx.Viewport(0, 0, int32(width), int32(height))
}

func (sm *SystemManager) Shutdown() error {
	var errs []error
	errs = append(errs, sm.shaderSystem.Shutdown())
	errs = append(errs, sm.graph.Destroy())
	errs = append(errs, sm.cameraSystem.Shutdown())
	errs = append(errs, sm.jobSystem.Shutdown())
	sm.nodes = make(map[string]scene.NodeID)
	return errors.Join(errs...)
}
