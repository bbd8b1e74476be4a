package mockgl

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

func traced(fn func(r *Renderer)) (*Renderer, []string) {
	s := &stream.Stream{}
	r := New(s, nil)
	buf := &stream.Buffer{}
	s.Install(buf)
	fn(r)
	s.Uninstall()
	return r, buf.Lines()
}

func TestRenderer_Clear(t *testing.T) {
	_, lines := traced(func(r *Renderer) {
		r.Clear(ColorBufferBit)
		r.Clear(ColorBufferBit | DepthBufferBit)
	})
	assert.Equal(t, []string{
		"Clear(mask = GL_COLOR_BUFFER_BIT)",
		"Clear(mask = GL_COLOR_BUFFER_BIT | GL_DEPTH_BUFFER_BIT)",
	}, lines)
}

func TestRenderer_Uniform4fvError(t *testing.T) {
	a := assert.New(t)
	value := []float32{3, 4, 5, 6}
	r, lines := traced(func(r *Renderer) {
		r.EnableErrorChecking(true)
		defer r.Stream().Label("Nested label")()
		r.Uniform4fv(2, 1, value)
	})
	require.Len(t, lines, 4)
	a.Equal(">Nested label", lines[0])
	a.Regexp(regexp.MustCompile(`^  Uniform4fv\(location = 2, count = 1, value = 0x[0-9a-f]+ -> \[3; 4; 5; 6\]\)$`), lines[1])
	a.Equal("  !invalid operation", lines[2])
	a.Equal("<", lines[3])
	// エラーチェックが有効な場合はエラー状態が消費される
	a.Equal(NoError, r.GetError())

	tr := tree.Build(lines)
	require.Len(t, tr, 1)
	label := tr[0].(*tree.Label)
	require.Len(t, label.Children, 1)
	c := label.Children[0].(*tree.Call)
	a.Equal("Uniform4fv", c.Function)
	a.Equal("invalid operation", c.Error)
}

func TestRenderer_errorWithoutChecking(t *testing.T) {
	a := assert.New(t)
	r, lines := traced(func(r *Renderer) {
		r.Uniform4fv(0, 1, []float32{1, 2, 3, 4})
		r.DrawArrays("GL_TRIANGLES", 0, 3)
	})
	a.Len(lines, 2)
	a.Equal(InvalidOperation, r.GetError())
	a.Equal(NoError, r.GetError())
}

func TestRenderer_DrawScene(t *testing.T) {
	a := assert.New(t)
	r, lines := traced(func(r *Renderer) {
		r.EnableErrorChecking(true)
		r.DrawScene()
	})
	for _, k := range reaper.AllKinds() {
		a.True(r.Resources(k) > 0, k.String())
	}
	a.Equal(NoError, r.GetError())

	tr := tree.Build(lines)
	require.Len(t, tr, 1)
	scene := tr[0].(*tree.Label)
	a.Equal("Draw scene", scene.Text)
	require.Len(t, scene.Children, 3)
	a.Equal("Clear", scene.Children[0].(*tree.Call).Function)
	a.Equal("Setup", scene.Children[1].(*tree.Label).Text)
	a.Equal("Shape", scene.Children[2].(*tree.Label).Text)
	tr.Walk(func(n tree.Node, depth int) {
		if c, ok := n.(*tree.Call); ok {
			a.False(c.HasError(), c.String())
		}
	})

	// 2回目以降はリソースを確保しない
	r.ResetCalls()
	r.DrawScene()
	a.NotContains(r.Calls(), "GenSamplers")
	a.NotContains(r.Calls(), "CreateProgram")
	a.Equal(1, r.Resources(reaper.Samplers))
}

func TestRenderer_DeleteResources(t *testing.T) {
	a := assert.New(t)
	r := New(nil, nil)
	r.DrawScene()
	r.ResetCalls()

	r.DeleteResources(reaper.Samplers)
	r.DeleteResources(reaper.ShaderPrograms)
	a.Equal([]string{"DeleteSamplers", "DeleteProgram"}, r.Calls())
	a.Equal(0, r.Resources(reaper.Samplers))
	a.Equal(0, r.Resources(reaper.ShaderPrograms))
	a.Equal(1, r.Resources(reaper.Textures))

	// 確保されていなければ何もしない
	r.ResetCalls()
	r.DeleteResources(reaper.Samplers)
	r.DeleteResources(reaper.Kind(100))
	a.Empty(r.Calls())

	r.DeleteResources(reaper.Shaders)
	a.Equal([]string{"DeleteShader", "DeleteShader"}, r.Calls())
}

func TestDeleteCall(t *testing.T) {
	for _, k := range reaper.AllKinds() {
		assert.NotEmpty(t, DeleteCall(k), k.String())
	}
	assert.Empty(t, DeleteCall(reaper.Kind(-1)))
}

func TestFormatMask(t *testing.T) {
	a := assert.New(t)
	a.Equal("GL_COLOR_BUFFER_BIT", FormatMask(ColorBufferBit))
	a.Equal("GL_DEPTH_BUFFER_BIT | GL_STENCIL_BUFFER_BIT", FormatMask(DepthBufferBit|StencilBufferBit))
	a.Equal("0x0", FormatMask(0))
	a.Equal("GL_COLOR_BUFFER_BIT | 0x1", FormatMask(ColorBufferBit|1))
}

func TestFormatFloats(t *testing.T) {
	a := assert.New(t)
	a.Regexp(`^0x[0-9a-f]+ -> \[1; 0\.5\]$`, FormatFloats([]float32{1, 0.5}))
	a.Equal("0x0 -> []", FormatFloats(nil))
}

func TestError_String(t *testing.T) {
	a := assert.New(t)
	a.Equal("invalid operation", InvalidOperation.String())
	a.Equal("unknown error 0x1", Error(1).String())
}
