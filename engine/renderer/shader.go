package renderer

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// emptyCompileLog replaces an empty driver log so a compile failure always
// carries a message.
const emptyCompileLog = "compilation failed without a driver log"

/**
 * @brief Shader owns one program stage. Stages are compiled on their own and
 * handed to a ShaderProgram, which takes exclusive ownership of them.
 */
type Shader struct {
	ctx       *Context
	handle    Handle
	stage     metadata.ShaderStage
	source    string
	path      string
	compiled  bool
	destroyed bool
	owner     *ShaderProgram
}

// NewShaderFromSource allocates a stage object for source. It only fails when
// the context is lost or the stage kind is unknown.
func NewShaderFromSource(ctx *Context, source string, stage metadata.ShaderStage) (*Shader, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if stage.Extension() == "" {
		return nil, fmt.Errorf("%w: %s", ErrStageMismatch, stage)
	}
	return &Shader{
		ctx:    ctx,
		handle: ctx.backend.CreateShader(stage),
		stage:  stage,
		source: source,
	}, nil
}

// NewShaderFromFile reads the stage source from path.
func NewShaderFromFile(ctx *Context, path string, stage metadata.ShaderStage) (*Shader, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResourceLoadError{Path: path, Err: err}
	}
	s, err := NewShaderFromSource(ctx, string(source), stage)
	if err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// Compile submits the source and compiles it. A rejected source returns a
// *CompileError with the driver's diagnostic. Compiling twice is a no-op.
func (s *Shader) Compile() error {
	if s.destroyed {
		return ErrDestroyed
	}
	if err := s.ctx.check(); err != nil {
		return err
	}
	if s.compiled {
		return nil
	}

	s.ctx.backend.ShaderSource(s.handle, s.source)
	s.ctx.backend.CompileShader(s.handle)
	ok, log := s.ctx.backend.ShaderStatus(s.handle)
	if !ok {
		if log == "" {
			log = emptyCompileLog
		}
		return &CompileError{Stage: s.stage, Message: log}
	}
	s.compiled = true
	return nil
}

func (s *Shader) Handle() Handle {
	return s.handle
}

func (s *Shader) Stage() metadata.ShaderStage {
	return s.stage
}

func (s *Shader) Source() string {
	return s.source
}

// Path is the file the source was read from, empty for in-memory sources.
func (s *Shader) Path() string {
	return s.path
}

func (s *Shader) Compiled() bool {
	return s.compiled
}

// Owned reports whether a live program has taken ownership of the stage.
func (s *Shader) Owned() bool {
	return s.owner != nil && !s.owner.destroyed
}

// Destroy releases the stage. Stages owned by a live program can only be
// released by destroying the program.
func (s *Shader) Destroy() error {
	if s.Owned() {
		return ErrStageOwned
	}
	s.release()
	return nil
}

func (s *Shader) release() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.compiled = false
	if !s.ctx.lost {
		s.ctx.backend.DeleteShader(s.handle)
	}
}
