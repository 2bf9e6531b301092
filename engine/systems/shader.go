package systems

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/shapes"
)

// shaderDir is the asset subdirectory holding stage overrides, named
// <program>.<vert|geom|frag>.
const shaderDir = "shaders"

var ErrUnknownProgram = errors.New("unknown shader program")

// ShaderSystem is the registry of named programs. It starts from the sources
// embedded in the shapes package, applies overrides found in the asset
// directory and rebuilds the programs of registered shapes when an override
// changes on disk.
type ShaderSystem struct {
	assetManager *assets.AssetManager
	defaults     map[string]shapes.Sources
	sources      map[string]shapes.Sources
	users        map[string][]*shapes.Shape
}

func NewShaderSystem(am *assets.AssetManager) *ShaderSystem {
	ss := &ShaderSystem{
		assetManager: am,
		defaults:     make(map[string]shapes.Sources),
		sources:      make(map[string]shapes.Sources),
		users:        make(map[string][]*shapes.Shape),
	}
	for _, name := range shapes.ProgramNames() {
		src, _ := shapes.DefaultProgram(name)
		ss.defaults[name] = src
		ss.sources[name] = src
	}
	return ss
}

// LoadOverrides replaces stages with the matching files indexed by the asset
// manager.
func (ss *ShaderSystem) LoadOverrides() error {
	if ss.assetManager == nil {
		return nil
	}
	var errs []error
	for _, info := range ss.assetManager.Assets(metadata.ResourceTypeShader) {
		rel, err := relativeAssetPath(ss.assetManager.Root(), info.Path)
		if err != nil {
			continue
		}
		if _, _, err := ss.apply(rel, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register makes shape follow future changes of its program.
func (ss *ShaderSystem) Register(shape *shapes.Shape) {
	name := shape.Kind().ProgramName()
	ss.users[name] = append(ss.users[name], shape)
}

// Unregister stops tracking shape.
func (ss *ShaderSystem) Unregister(shape *shapes.Shape) {
	name := shape.Kind().ProgramName()
	users := ss.users[name]
	for i, s := range users {
		if s == shape {
			ss.users[name] = append(users[:i], users[i+1:]...)
			return
		}
	}
}

// Sources returns the current sources of a program.
func (ss *ShaderSystem) Sources(name string) (shapes.Sources, error) {
	src, ok := ss.sources[name]
	if !ok {
		return shapes.Sources{}, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
	return src, nil
}

// SourcesFor returns the current sources used by a shape kind.
func (ss *ShaderSystem) SourcesFor(kind shapes.Kind) shapes.Sources {
	src, err := ss.Sources(kind.ProgramName())
	if err != nil {
		return shapes.DefaultSources(kind)
	}
	return src
}

// Programs lists the registered program names.
func (ss *ShaderSystem) Programs() []string {
	names := make([]string, 0, len(ss.sources))
	for n := range ss.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HandleChange applies one asset event. Shapes using the affected program
// are reloaded; a shape whose reload fails keeps its previous program.
func (ss *ShaderSystem) HandleChange(ev assets.AssetEvent) error {
	if ev.Type != metadata.ResourceTypeShader {
		return nil
	}
	name, changed, err := ss.apply(ev.Path, ev.Removed)
	if err != nil || !changed {
		return err
	}

	src := ss.sources[name]
	var errs []error
	for _, shape := range ss.users[name] {
		if err := shape.Reload(src); err != nil {
			core.LogError("reloading program '%s' failed, keeping the previous one: %s", name, err)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		core.LogInfo("reloaded program '%s' for %d shapes", name, len(ss.users[name]))
	}
	return errors.Join(errs...)
}

// apply updates one stage from the file at rel, a slash separated path
// relative to the asset root. Removed files restore the embedded stage.
func (ss *ShaderSystem) apply(rel string, removed bool) (string, bool, error) {
	dir, file := path.Split(rel)
	if strings.TrimSuffix(dir, "/") != shaderDir {
		return "", false, nil
	}
	ext := path.Ext(file)
	stage, ok := metadata.ShaderStageFromExtension(ext)
	if !ok {
		return "", false, nil
	}
	name := strings.TrimSuffix(file, ext)
	current, ok := ss.sources[name]
	if !ok {
		core.LogDebug("ignoring stage file '%s' for unknown program", rel)
		return "", false, nil
	}

	if removed {
		ss.sources[name] = current.WithStage(stage, ss.defaults[name].Stage(stage))
		return name, true, nil
	}

	res, err := ss.assetManager.LoadAsset(rel, nil)
	if err != nil {
		return name, false, err
	}
	text, _ := res.Data.(string)
	ss.sources[name] = current.WithStage(stage, text)
	core.LogDebug("program '%s' uses %s stage from '%s'", name, stage, rel)
	return name, true, nil
}

func relativeAssetPath(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (ss *ShaderSystem) Shutdown() error {
	ss.users = make(map[string][]*shapes.Shape)
	return nil
}
