package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki0xff/frametrace/tracer/stream"
)

func TestBuild_empty(t *testing.T) {
	a := assert.New(t)
	tr := Build(nil)
	a.NotNil(tr)
	a.Len(tr, 0)
	a.Equal(0, tr.Len())
}

func TestBuild_nested(t *testing.T) {
	a := assert.New(t)
	tr := Build([]string{
		">Top level label:",
		"Clear(mask = GL_COLOR_BUFFER_BIT)",
		"-->Nested label",
		"  Uniform4fv(location = 2, count = 1, value = 0x10 -> [3; 4; 5; 6])",
		"  !invalid operation",
	})

	require.Len(t, tr, 1)
	top := tr[0].(*Label)
	a.Equal("Top level label", top.Text)
	require.Len(t, top.Children, 2)

	clear := top.Children[0].(*Call)
	a.Equal("Clear", clear.Function)
	a.Equal([]stream.Arg{{Name: "mask", Value: "GL_COLOR_BUFFER_BIT"}}, clear.Args)
	a.False(clear.HasError())

	nested := top.Children[1].(*Label)
	a.Equal("Nested label", nested.Text)
	require.Len(t, nested.Children, 1)
	u := nested.Children[0].(*Call)
	a.Equal("Uniform4fv", u.Function)
	a.Equal([]stream.Arg{
		{Name: "location", Value: "2"},
		{Name: "count", Value: "1"},
		{Name: "value", Value: "0x10 -> [3; 4; 5; 6]"},
	}, u.Args)
	a.Equal("invalid operation", u.Error)
	a.Equal(4, tr.Len())
}

func TestBuild_explicitEnd(t *testing.T) {
	a := assert.New(t)
	tr := Build([]string{
		">A",
		"  First()",
		"<",
		"Second()",
		">B",
		"-->C",
		"--<",
		"  Third()",
		"<",
	})
	require.Len(t, tr, 3)
	a.Equal("A", tr[0].(*Label).Text)
	a.Len(tr[0].(*Label).Children, 1)
	a.Equal("Second", tr[1].(*Call).Function)

	b := tr[2].(*Label)
	require.Len(t, b.Children, 2)
	a.Equal("C", b.Children[0].(*Label).Text)
	a.Empty(b.Children[0].(*Label).Children)
	a.Equal("Third", b.Children[1].(*Call).Function)
}

func TestBuild_siblingLabelsCloseEachOther(t *testing.T) {
	a := assert.New(t)
	tr := Build([]string{
		">A",
		"-->A1",
		"-->A2",
		">B",
	})
	require.Len(t, tr, 2)
	a.Len(tr[0].(*Label).Children, 2)
	a.Empty(tr[1].(*Label).Children)
}

func TestBuild_malformed(t *testing.T) {
	a := assert.New(t)
	tr := Build([]string{
		"<",       // close without open
		"--<",     // close without open
		"!orphan", // error without call
		">Open",
		"---->Deep",
		"    Draw()",
		"----<",
		"------<", // deeper than anything open
		"Tail()",
	})
	require.Len(t, tr, 1)
	open := tr[0].(*Label)
	require.Len(t, open.Children, 2)
	deep := open.Children[0].(*Label)
	a.Equal("Deep", deep.Text)
	a.Equal("Draw", deep.Children[0].(*Call).Function)
	a.Equal("Tail", open.Children[1].(*Call).Function)
}

func TestBuild_deterministic(t *testing.T) {
	lines := []string{">A", "  X(a = 1)", "-->B", "    Y()", "    !boom", "Z()"}
	assert.Equal(t, Build(lines), Build(lines))
}

func TestBuild_multipleErrors(t *testing.T) {
	tr := Build([]string{"Draw()", "!a", "!b"})
	require.Len(t, tr, 1)
	assert.Equal(t, "a; b", tr[0].(*Call).Error)
}

func TestParseCall(t *testing.T) {
	tests := []struct {
		text string
		want *Call
	}{
		{"Flush()", &Call{Function: "Flush"}},
		{"Flush", &Call{Function: "Flush"}},
		{"Enable(GL_BLEND)", &Call{Function: "Enable", Args: []stream.Arg{{Value: "GL_BLEND"}}}},
		{"F(a = [1, 2], b = g(x, y))", &Call{Function: "F", Args: []stream.Arg{
			{Name: "a", Value: "[1, 2]"},
			{Name: "b", Value: "g(x, y)"},
		}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCall(tt.text), tt.text)
	}
}

func TestCall_String(t *testing.T) {
	c := ParseCall("Uniform4fv(location = 2, count = 1)")
	assert.Equal(t, "Uniform4fv(location = 2, count = 1)", c.String())
}
