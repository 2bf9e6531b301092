package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrContextLost      = errors.New("rendering context lost")
	ErrDestroyed        = errors.New("resource already destroyed")
	ErrNotCompiled      = errors.New("shader stage is not compiled")
	ErrNotLinked        = errors.New("shader program is not linked")
	ErrStageOwned       = errors.New("shader stage is owned by a program")
	ErrStageMismatch    = errors.New("shader stage has the wrong kind")
	ErrInvalidSlot      = errors.New("texture slot out of range")
	ErrEmptyUpload      = errors.New("buffer upload without data")
	ErrInvalidAttribute = errors.New("invalid vertex attribute")
	ErrInvalidProperty  = errors.New("invalid texture property value")
	ErrInvalidImage     = errors.New("invalid image data")
)

// CompileError carries the driver diagnostic for a rejected stage.
type CompileError struct {
	Stage   metadata.ShaderStage
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Message)
}

// LinkError carries the driver diagnostic for a program that failed to link.
type LinkError struct {
	Message string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link program: %s", e.Message)
}

// ResourceLoadError reports a shader or texture file that could not be read
// or decoded.
type ResourceLoadError struct {
	Path string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load resource '%s': %v", e.Path, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}
