package shapes

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (*renderer.Context, *software.Backend) {
	b := software.New()
	return renderer.NewContext(b), b
}

type stubDecoder struct{}

func (stubDecoder) Decode(string) (*metadata.ImageResourceData, error) {
	return &metadata.ImageResourceData{ChannelCount: 3, Width: 1, Height: 1, Pixels: []uint8{1, 2, 3}}, nil
}

func TestTriangleDrawsOneIndexedTriangle(t *testing.T) {
	ctx, b := newContext()
	tri, err := NewTriangle(ctx, Options{X: 0.5, Y: -0.5, Size: 0.25, Texture: "brick.png", Decoder: stubDecoder{}})
	require.NoError(t, err)
	assert.Equal(t, "brick.png", tri.Texture().Path())

	status := tri.Draw()
	require.True(t, status.OK(), status.String())

	draws := b.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, metadata.PrimitiveTriangles, draws[0].Mode)
	assert.Equal(t, 1, draws[0].Primitives)
	assert.Equal(t, tri.Texture().Handle(), draws[0].Texture)
	assert.Equal(t, tri.Transform(), draws[0].Uniforms["trans"])
	assert.Equal(t, mgl32.Ident4(), draws[0].Uniforms["view"])
	assert.Equal(t, int32(0), draws[0].Uniforms["tex"])

	// vertex data is re-uploaded as dynamic on every draw
	data, ok := b.BufferContents(tri.vertices.Handle())
	require.True(t, ok)
	assert.Len(t, data, 60)
	assert.Equal(t, metadata.BufferUsageDynamic, tri.vertices.Usage())
}

func TestSquareDrawsTwoTriangles(t *testing.T) {
	ctx, b := newContext()
	sq, err := NewSquare(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, "default", sq.Texture().Name())

	require.True(t, sq.Draw().OK())
	draws := b.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, int32(6), draws[0].Count)
	assert.Equal(t, 2, draws[0].Primitives)
}

func TestPolygonExpandsASinglePoint(t *testing.T) {
	ctx, b := newContext()
	hex, err := NewPolygon(ctx, 6, Options{Size: 0.3})
	require.NoError(t, err)
	assert.True(t, hex.Program().HasGeometryShader())
	assert.Equal(t, 6, hex.Sides())

	status := hex.Draw()
	require.True(t, status.OK(), status.String())
	draws := b.Draws()
	require.Len(t, draws, 1)
	assert.False(t, draws[0].Indexed)
	assert.Equal(t, metadata.PrimitivePoints, draws[0].Mode)
	assert.Equal(t, int32(1), draws[0].Count)
	assert.Equal(t, int32(6), draws[0].Uniforms["sides"])
	assert.Equal(t, []metadata.VertexAttribute{
		{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: 12},
	}, draws[0].Attributes)
}

func TestPolygonSideBounds(t *testing.T) {
	ctx, _ := newContext()
	for _, sides := range []int{0, 2, 15, 100} {
		_, err := NewPolygon(ctx, sides, Options{})
		assert.ErrorIs(t, err, ErrInvalidSides, "sides=%d", sides)
	}
	for _, sides := range []int{MinPolygonSides, MaxPolygonSides} {
		p, err := NewPolygon(ctx, sides, Options{})
		require.NoError(t, err)
		assert.True(t, p.Draw().OK())
	}
}

func TestTransformsLeftMultiply(t *testing.T) {
	ctx, _ := newContext()
	tri, err := NewTriangle(ctx, Options{X: 0.1, Y: 0.2, Size: 0.5})
	require.NoError(t, err)

	want := mgl32.Translate3D(0.1, 0.2, 0).Mul4(mgl32.Scale3D(0.5, 0.5, 1))
	assert.True(t, math.Mat4ApproxEqual(tri.Transform(), want, 1e-5))

	tri.Rotate(0.3, math.AxisZ)
	want = mgl32.HomogRotate3DZ(0.3).Mul4(want)
	tri.Scale(2, 3)
	want = mgl32.Scale3D(2, 3, 1).Mul4(want)
	tri.Translate(-1, 1)
	want = mgl32.Translate3D(-1, 1, 0).Mul4(want)
	assert.True(t, math.Mat4ApproxEqual(tri.Transform(), want, 1e-5))

	tri.Translate(1, -1)
	tri.Scale(0.5, 1.0/3.0)
	tri.Rotate(-0.3, math.AxisZ)
	initial := mgl32.Translate3D(0.1, 0.2, 0).Mul4(mgl32.Scale3D(0.5, 0.5, 1))
	assert.True(t, math.Mat4ApproxEqual(tri.Transform(), initial, 1e-5))
}

func TestCompileFailureIsReturnedAndNothingLeaks(t *testing.T) {
	ctx, b := newContext()
	src := DefaultSources(KindTriangle)
	src.Fragment = "#version 410 core\nvoid main() {"

	_, err := NewTriangle(ctx, Options{Sources: &src})
	var ce *renderer.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, metadata.ShaderStageFragment, ce.Stage)
	assert.Equal(t, 0, b.LiveObjects())
}

func TestLinkFailureIsReturned(t *testing.T) {
	ctx, b := newContext()
	src := DefaultSources(KindSquare)
	src.Fragment = "#version 410 core\nin vec3 color;\nout vec4 c;\nvoid main() { c = vec4(color, 1.0); }\n"

	_, err := NewSquare(ctx, Options{Sources: &src})
	var le *renderer.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 0, b.LiveObjects())
}

func TestProgramMustMatchKind(t *testing.T) {
	ctx, _ := newContext()
	flat := DefaultSources(KindTriangle)
	_, err := NewPolygon(ctx, 5, Options{Sources: &flat})
	assert.ErrorIs(t, err, renderer.ErrStageMismatch)

	poly := DefaultSources(KindPolygon)
	_, err = NewTriangle(ctx, Options{Sources: &poly})
	assert.ErrorIs(t, err, renderer.ErrStageMismatch)
}

func TestTextureWithoutDecoder(t *testing.T) {
	ctx, _ := newContext()
	_, err := NewSquare(ctx, Options{Texture: "wall.png"})
	var le *renderer.ResourceLoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrNoDecoder)
}

func TestDrawMapsDriverErrors(t *testing.T) {
	ctx, b := newContext()
	sq, err := NewSquare(ctx, Options{})
	require.NoError(t, err)

	b.FailNextDraw(metadata.ErrorOutOfMemory)
	status := sq.Draw()
	assert.Equal(t, renderer.OutcomeFailed, status.Outcome)
	assert.Equal(t, "out of memory", status.Message)

	assert.True(t, sq.Draw().OK(), "flags are cleared by the status query")

	b.LoseContext()
	assert.Equal(t, renderer.OutcomeContextLost, sq.Draw().Outcome)
	b.Reset()
	assert.Equal(t, renderer.OutcomeContextLost, sq.Draw().Outcome)
	assert.Empty(t, b.Calls(), "a lost context is never called again")
}

func TestDrawIgnoresFlagsRaisedBeforeIt(t *testing.T) {
	ctx, b := newContext()
	tri, err := NewTriangle(ctx, Options{})
	require.NoError(t, err)

	b.InjectError(metadata.ErrorInvalidEnum)
	assert.True(t, tri.Draw().OK())
	assert.Len(t, b.Draws(), 1)
}

func TestReloadKeepsOldProgramOnFailure(t *testing.T) {
	ctx, _ := newContext()
	sq, err := NewSquare(ctx, Options{})
	require.NoError(t, err)
	old := sq.Program()

	bad := DefaultSources(KindSquare)
	bad.Vertex = "not glsl"
	require.Error(t, sq.Reload(bad))
	assert.Same(t, old, sq.Program())
	assert.True(t, sq.Draw().OK())

	require.NoError(t, sq.Reload(DefaultSources(KindSquare)))
	assert.NotSame(t, old, sq.Program())
	assert.ErrorIs(t, old.SetActive(), renderer.ErrDestroyed)
	assert.True(t, sq.Draw().OK())
}

func TestDestroyReleasesEverythingOnce(t *testing.T) {
	ctx, b := newContext()
	hex, err := NewPolygon(ctx, 6, Options{})
	require.NoError(t, err)
	sq, err := NewSquare(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, hex.Destroy())
	require.NoError(t, sq.Destroy())
	require.NoError(t, sq.Destroy())
	assert.Equal(t, 0, b.LiveObjects())

	status := sq.Draw()
	assert.Equal(t, renderer.OutcomeFailed, status.Outcome)
	assert.ErrorIs(t, status.Err(), renderer.ErrDestroyed)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindTriangle, KindSquare, KindPolygon} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("circle")
	assert.Error(t, err)
}
