package shapes

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	// MinPolygonSides and MaxPolygonSides bound NewPolygon. The geometry
	// stage emits 2*(sides+1) vertices and declares max_vertices = 30.
	MinPolygonSides = 3
	MaxPolygonSides = 14

	uniformTransform = "trans"
	uniformView      = "view"
	uniformSides     = "sides"
	uniformTexture   = "tex"

	defaultTextureName = "default"
)

var (
	ErrInvalidSides = fmt.Errorf("polygon sides must be within [%d, %d]", MinPolygonSides, MaxPolygonSides)
	ErrNoDecoder    = errors.New("texture path given without an image decoder")
)

// Options configures a new shape.
type Options struct {
	// X and Y place the shape center in normalised device coordinates.
	X, Y float32
	// Size scales the unit shape. Zero means 1.
	Size float32
	// Texture is an image path decoded with Decoder. When empty, Image is
	// used, and without Image a small checker texture.
	Texture string
	Decoder renderer.ImageDecoder
	Image   *metadata.ImageResourceData
	// Sources overrides the embedded program of the shape kind.
	Sources *Sources
}

/**
 * @brief Shape is a drawable 2D primitive. It exclusively owns its program,
 * texture, vertex array and buffers, and destroys them as a unit.
 */
type Shape struct {
	ctx         *renderer.Context
	kind        Kind
	sides       int32
	program     *renderer.ShaderProgram
	texture     *renderer.Texture2D
	vertexArray *renderer.VertexArray
	vertices    *renderer.VertexBuffer
	indices     *renderer.IndexBuffer
	vertexData  []float32
	indexData   []uint32
	transform   *math.Transform
	view        mgl32.Mat4
	destroyed   bool
}

// NewTriangle builds a textured triangle.
func NewTriangle(ctx *renderer.Context, opts Options) (*Shape, error) {
	return newShape(ctx, KindTriangle, 0, opts)
}

// NewSquare builds a textured square from two indexed triangles.
func NewSquare(ctx *renderer.Context, opts Options) (*Shape, error) {
	return newShape(ctx, KindSquare, 0, opts)
}

// NewPolygon builds a regular polygon that the geometry stage expands from a
// single point.
func NewPolygon(ctx *renderer.Context, sides int, opts Options) (*Shape, error) {
	if sides < MinPolygonSides || sides > MaxPolygonSides {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSides, sides)
	}
	return newShape(ctx, KindPolygon, int32(sides), opts)
}

func newShape(ctx *renderer.Context, kind Kind, sides int32, opts Options) (shape *Shape, err error) {
	if opts.Size == 0 {
		opts.Size = 1
	}
	src := DefaultSources(kind)
	if opts.Sources != nil {
		src = *opts.Sources
	}

	s := &Shape{
		ctx:       ctx,
		kind:      kind,
		sides:     sides,
		transform: math.TransformFromPositionSize(opts.X, opts.Y, opts.Size),
		view:      mgl32.Ident4(),
	}
	s.vertexData, s.indexData = geometryFor(kind)

	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()

	if err = checkSources(kind, src); err != nil {
		return nil, err
	}
	if s.program, err = buildProgram(ctx, src); err != nil {
		return nil, err
	}
	if s.texture, err = buildTexture(ctx, opts); err != nil {
		return nil, err
	}
	if err = s.buildBuffers(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkSources makes sure the program matches the draw path of kind:
// polygons are expanded by a geometry stage, the other kinds are indexed.
func checkSources(kind Kind, src Sources) error {
	if kind == KindPolygon && src.Geometry == "" {
		return fmt.Errorf("%w: polygon program needs a geometry stage", renderer.ErrStageMismatch)
	}
	if kind != KindPolygon && src.Geometry != "" {
		return fmt.Errorf("%w: %s program cannot have a geometry stage", renderer.ErrStageMismatch, kind)
	}
	return nil
}

// buildBuffers uploads the geometry and describes its layout: position and
// uv interleaved for indexed shapes, a lone position for polygons.
func (s *Shape) buildBuffers() (err error) {
	if s.vertexArray, err = renderer.NewVertexArray(s.ctx); err != nil {
		return err
	}
	if s.vertices, err = renderer.NewVertexBuffer(s.ctx); err != nil {
		return err
	}
	if err = s.vertexArray.Bind(); err != nil {
		return err
	}
	if err = s.vertices.UploadFloat32(s.vertexData, metadata.BufferUsageStatic); err != nil {
		return err
	}

	for _, attr := range layoutFor(s.kind) {
		if err = s.vertexArray.ConfigureAttribute(s.vertices, attr); err != nil {
			return err
		}
	}

	if len(s.indexData) == 0 {
		return nil
	}
	if s.indices, err = renderer.NewIndexBuffer(s.ctx); err != nil {
		return err
	}
	if err = s.vertexArray.SetIndexBuffer(s.indices); err != nil {
		return err
	}
	return s.indices.UploadUint32(s.indexData, metadata.BufferUsageStatic)
}

// Draw submits the shape and maps the driver error state to a status.
// Flags raised before the draw belong to earlier calls and are discarded.
func (s *Shape) Draw() renderer.DrawStatus {
	switch stale := s.ctx.Error(); stale {
	case metadata.ErrorNone:
	case metadata.ErrorContextLost:
		return renderer.StatusContextLost()
	default:
		core.LogDebug("discarding error flag '%s' raised before drawing a %s", stale, s.kind)
	}
	if err := s.submit(); err != nil {
		return renderer.StatusFailed(err)
	}
	return s.ctx.Status()
}

func (s *Shape) submit() error {
	if s.destroyed {
		return renderer.ErrDestroyed
	}
	if err := s.vertexArray.Bind(); err != nil {
		return err
	}
	if err := s.vertices.Bind(); err != nil {
		return err
	}
	if s.indices != nil {
		if err := s.indices.Bind(); err != nil {
			return err
		}
	}
	if err := s.texture.BindToSlot(0); err != nil {
		return err
	}
	if err := s.program.SetActive(); err != nil {
		return err
	}
	if err := s.program.SetUniformMat4(uniformTransform, s.transform.Matrix()); err != nil {
		return err
	}
	if err := s.program.SetUniformMat4(uniformView, s.view); err != nil {
		return err
	}
	if err := s.vertices.UploadFloat32(s.vertexData, metadata.BufferUsageDynamic); err != nil {
		return err
	}

	if !s.program.HasGeometryShader() {
		if err := s.indices.UploadUint32(s.indexData, metadata.BufferUsageDynamic); err != nil {
			return err
		}
		return s.ctx.DrawIndexed(metadata.PrimitiveTriangles, s.indices.Count(), s.indices.IndexType(), 0)
	}
	if err := s.program.SetUniformInt(uniformSides, s.sides); err != nil {
		return err
	}
	return s.ctx.DrawArrays(metadata.PrimitivePoints, 0, 1)
}

// Translate moves the shape by (dx, dy).
func (s *Shape) Translate(dx, dy float32) {
	s.transform.Translate(dx, dy, 0)
}

// Rotate rotates the shape by angle radians around axis.
func (s *Shape) Rotate(angle float32, axis math.Axis) {
	s.transform.Rotate(angle, axis)
}

func (s *Shape) RotateDegrees(degrees float32, axis math.Axis) {
	s.transform.RotateDegrees(degrees, axis)
}

func (s *Shape) Scale(sx, sy float32) {
	s.transform.Scale(sx, sy, 1)
}

// Transform returns the current model matrix.
func (s *Shape) Transform() mgl32.Mat4 {
	return s.transform.Matrix()
}

// SetView sets the camera matrix uploaded on every draw.
func (s *Shape) SetView(view mgl32.Mat4) {
	s.view = view
}

func (s *Shape) View() mgl32.Mat4 {
	return s.view
}

func (s *Shape) Kind() Kind {
	return s.kind
}

// Sides is the polygon side count, 0 for other kinds.
func (s *Shape) Sides() int {
	return int(s.sides)
}

func (s *Shape) Program() *renderer.ShaderProgram {
	return s.program
}

func (s *Shape) Texture() *renderer.Texture2D {
	return s.texture
}

// Reload rebuilds the program from src. On failure the current program is
// kept and the error returned.
func (s *Shape) Reload(src Sources) error {
	if s.destroyed {
		return renderer.ErrDestroyed
	}
	if err := checkSources(s.kind, src); err != nil {
		return err
	}
	program, err := buildProgram(s.ctx, src)
	if err != nil {
		return err
	}
	old := s.program
	s.program = program
	if err := old.Destroy(); err != nil {
		core.LogWarn("failed to release replaced program: %s", err)
	}
	return nil
}

// Destroy releases every owned resource once.
func (s *Shape) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true

	var errs []error
	if s.program != nil {
		errs = append(errs, s.program.Destroy())
	}
	if s.texture != nil {
		errs = append(errs, s.texture.Destroy())
	}
	if s.vertexArray != nil {
		errs = append(errs, s.vertexArray.Destroy())
	}
	if s.vertices != nil {
		errs = append(errs, s.vertices.Destroy())
	}
	if s.indices != nil {
		errs = append(errs, s.indices.Destroy())
	}
	return errors.Join(errs...)
}
