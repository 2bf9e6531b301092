package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief ShaderProgram links a vertex, an optional geometry and a fragment
 * stage. The program exclusively owns its stages: destroying the program
 * destroys them.
 */
type ShaderProgram struct {
	ctx       *Context
	handle    Handle
	stages    []*Shader
	geometry  bool
	linked    bool
	destroyed bool
	locations map[string]int32
}

// NewShaderProgram attaches compiled stages to a new program. geometry may be
// nil. On success the program owns every stage passed in.
func NewShaderProgram(ctx *Context, vertex, fragment, geometry *Shader) (*ShaderProgram, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}

	stages := []*Shader{vertex}
	kinds := []metadata.ShaderStage{metadata.ShaderStageVertex}
	if geometry != nil {
		stages = append(stages, geometry)
		kinds = append(kinds, metadata.ShaderStageGeometry)
	}
	stages = append(stages, fragment)
	kinds = append(kinds, metadata.ShaderStageFragment)

	for i, s := range stages {
		if err := checkStage(s, kinds[i]); err != nil {
			return nil, err
		}
	}

	p := &ShaderProgram{
		ctx:       ctx,
		handle:    ctx.backend.CreateProgram(),
		stages:    stages,
		geometry:  geometry != nil,
		locations: make(map[string]int32),
	}
	for _, s := range stages {
		ctx.backend.AttachShader(p.handle, s.handle)
		s.owner = p
	}
	return p, nil
}

func checkStage(s *Shader, want metadata.ShaderStage) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: missing %s stage", ErrStageMismatch, want)
	case s.destroyed:
		return fmt.Errorf("%s stage: %w", want, ErrDestroyed)
	case s.stage != want:
		return fmt.Errorf("%w: expected %s, got %s", ErrStageMismatch, want, s.stage)
	case !s.compiled:
		return fmt.Errorf("%s stage: %w", want, ErrNotCompiled)
	case s.Owned():
		return fmt.Errorf("%s stage: %w", want, ErrStageOwned)
	}
	return nil
}

// Link links the attached stages. A failed link returns a *LinkError and
// leaves the program allocated but unusable.
func (p *ShaderProgram) Link() error {
	if err := p.usable(); err != nil {
		return err
	}
	p.ctx.backend.LinkProgram(p.handle)
	ok, log := p.ctx.backend.ProgramStatus(p.handle)
	p.linked = ok
	clear(p.locations)
	if !ok {
		if log == "" {
			log = "link failed without a driver log"
		}
		return &LinkError{Message: log}
	}
	return nil
}

func (p *ShaderProgram) Linked() bool {
	return p.linked
}

func (p *ShaderProgram) HasGeometryShader() bool {
	return p.geometry
}

func (p *ShaderProgram) Handle() Handle {
	return p.handle
}

// Stages returns the owned stages in pipeline order.
func (p *ShaderProgram) Stages() []*Shader {
	return append([]*Shader(nil), p.stages...)
}

func (p *ShaderProgram) usable() error {
	if p.destroyed {
		return ErrDestroyed
	}
	return p.ctx.check()
}

func (p *ShaderProgram) ready() error {
	if err := p.usable(); err != nil {
		return err
	}
	if !p.linked {
		return ErrNotLinked
	}
	return nil
}

// SetActive makes the program current for subsequent draws.
func (p *ShaderProgram) SetActive() error {
	if err := p.ready(); err != nil {
		return err
	}
	p.ctx.useProgram(p.handle)
	return nil
}

// location resolves a uniform name, caching the answer until the next link.
// A negative location means the name is not an active uniform.
func (p *ShaderProgram) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := p.ctx.backend.UniformLocation(p.handle, name)
	if loc < 0 {
		core.LogDebug("uniform '%s' does not resolve in program %d, value ignored", name, p.handle)
	}
	p.locations[name] = loc
	return loc
}

// SetUniformInt uploads an int uniform. Like the driver, a name that does not
// resolve is silently ignored.
func (p *ShaderProgram) SetUniformInt(name string, value int32) error {
	if err := p.ready(); err != nil {
		return err
	}
	if loc := p.location(name); loc >= 0 {
		p.ctx.backend.ProgramUniformInt(p.handle, loc, value)
	}
	return nil
}

func (p *ShaderProgram) SetUniformFloat(name string, value float32) error {
	if err := p.ready(); err != nil {
		return err
	}
	if loc := p.location(name); loc >= 0 {
		p.ctx.backend.ProgramUniformFloat(p.handle, loc, value)
	}
	return nil
}

// SetUniformBool uploads a bool as the int 0 or 1.
func (p *ShaderProgram) SetUniformBool(name string, value bool) error {
	var v int32
	if value {
		v = 1
	}
	return p.SetUniformInt(name, v)
}

func (p *ShaderProgram) SetUniformMat4(name string, value mgl32.Mat4) error {
	if err := p.ready(); err != nil {
		return err
	}
	if loc := p.location(name); loc >= 0 {
		p.ctx.backend.ProgramUniformMat4(p.handle, loc, value)
	}
	return nil
}

// Destroy deletes the program handle exactly once, linked or not, and then
// the owned stages.
func (p *ShaderProgram) Destroy() error {
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	p.linked = false
	if !p.ctx.lost {
		p.ctx.forgetProgram(p.handle)
		p.ctx.backend.DeleteProgram(p.handle)
	}
	for _, s := range p.stages {
		s.release()
	}
	return nil
}
