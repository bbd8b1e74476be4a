package render

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

const (
	expectedStart1 = "<span class=\"trace_header\">OpenGL trace at frame "
	expectedStart2 = "</span><br><br>\n<div class=\"tree\">\n<ul>\n"
	expectedEnd    = "</ul>\n</div>\n"
)

// multiLineStringsEqual reports a unified diff when expected and actual differ.
func multiLineStringsEqual(t *testing.T, expected, actual string) bool {
	t.Helper()
	if expected == actual {
		return true
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	require.NoError(t, err)
	t.Errorf("strings differ:\n%s", diff)
	return false
}

func sampleTree() tree.Tree {
	return tree.Build([]string{
		">Top level label:",
		"Clear(mask = GL_COLOR_BUFFER_BIT)",
		"-->Nested label",
		"  Uniform4fv(location = 2, count = 1, value = 0x10 -> [3; 4; 5; 6])",
		"  !invalid operation",
	})
}

func TestHTMLRender_RenderTree_empty(t *testing.T) {
	var r HTMLRender
	assert.Equal(t, EmptyList, r.RenderTree(nil))
	assert.Equal(t, EmptyList, r.RenderTree(tree.Tree{}))
}

func TestHTMLRender_RenderTree(t *testing.T) {
	var r HTMLRender
	expected := "<ul>\n" +
		"<li><input type=\"checkbox\" checked=\"checked\" id=\"list-0\"/>" +
		"<label for=\"list-0\">Top level label</label>\n" +
		"<ul>\n" +
		"<li><span class=\"trace_function\">Clear</span>(" +
		"<span class=\"trace_arg_name\">mask</span> = " +
		"<span class=\"trace_arg_value\">GL_COLOR_BUFFER_BIT</span>)</li>\n" +
		"<li><input type=\"checkbox\" checked=\"checked\" id=\"list-1\"/>" +
		"<label for=\"list-1\">Nested label</label>\n" +
		"<ul>\n" +
		"<li><span class=\"trace_function\">Uniform4fv</span>(" +
		"<span class=\"trace_arg_name\">location</span> = <span class=\"trace_arg_value\">2</span>, " +
		"<span class=\"trace_arg_name\">count</span> = <span class=\"trace_arg_value\">1</span>, " +
		"<span class=\"trace_arg_name\">value</span> = <span class=\"trace_arg_value\">0x10 -> [3; 4; 5; 6]</span>)</li>\n" +
		"<br><span class=\"trace_error\">***OpenGL Error: Uniform4fv(location = 2, count = 1, value = 0x10 -> [3; 4; 5; 6]): invalid operation</span><br><br>\n" +
		"</ul>\n" +
		"</li>\n" +
		"</ul>\n" +
		"</li>\n" +
		"</ul>\n"
	multiLineStringsEqual(t, expected, r.RenderTree(sampleTree()))

	// ids start from zero on every pass.
	multiLineStringsEqual(t, expected, r.RenderTree(sampleTree()))
}

func TestHTMLRender_RenderTraces(t *testing.T) {
	var r HTMLRender

	multiLineStringsEqual(t, expectedStart1+"2"+expectedStart2+expectedEnd, r.RenderTraces(2, nil))

	doc := r.RenderTraces(9, []Trace{
		{Frame: 2, Tree: tree.Tree{}},
		{Frame: 3, Tree: tree.Build([]string{">A", ">B"})},
	})
	multiLineStringsEqual(t,
		expectedStart1+"2"+expectedStart2+expectedEnd+
			TraceSplitter+
			expectedStart1+"3"+expectedStart2+
			"<li><input type=\"checkbox\" checked=\"checked\" id=\"list-0\"/><label for=\"list-0\">A</label>\n<ul>\n</ul>\n</li>\n"+
			"<li><input type=\"checkbox\" checked=\"checked\" id=\"list-1\"/><label for=\"list-1\">B</label>\n<ul>\n</ul>\n</li>\n"+
			expectedEnd,
		doc)
}

func TestHTMLRender_idsUniqueAcrossTraces(t *testing.T) {
	var r HTMLRender
	doc := r.RenderTraces(0, []Trace{
		{Frame: 1, Tree: tree.Build([]string{">A"})},
		{Frame: 2, Tree: tree.Build([]string{">B"})},
	})
	assert.Contains(t, doc, `id="list-0"`)
	assert.Contains(t, doc, `id="list-1"`)
	assert.NotContains(t, doc, `id="list-2"`)
}

func TestHTMLRender_escape(t *testing.T) {
	var r HTMLRender
	out := r.RenderTree(tree.Build([]string{
		"><script>&",
		"  ShaderSource(source = a < b && c -> d)",
	}))
	assert.Contains(t, out, `<label for="list-0">&lt;script>&amp;</label>`)
	assert.Contains(t, out, "a &lt; b &amp;&amp; c -> d")
	assert.NotContains(t, out, "<script>")
}

func TestParseHTML_roundTrip(t *testing.T) {
	trees := []tree.Tree{
		{},
		sampleTree(),
		tree.Build([]string{
			">Frame",
			"-->Pass 1",
			"    Enable(GL_BLEND)",
			"    DrawElements(mode = GL_TRIANGLES, count = 36)",
			"    !invalid enum",
			"-->Pass 2",
			"---->Inner",
			"      Flush()",
			"Finish()",
		}),
	}

	var traces []Trace
	for i, tr := range trees {
		traces = append(traces, Trace{Frame: uint64(i + 10), Tree: tr})
	}

	var r HTMLRender
	parsed, err := ParseHTML(r.RenderTraces(0, traces))
	require.NoError(t, err)
	require.Len(t, parsed, len(traces))
	for i := range traces {
		assert.Equal(t, traces[i].Frame, parsed[i].Frame)
		assert.Equal(t, Depths(traces[i].Tree), Depths(parsed[i].Tree))
		assert.Equal(t, traces[i].Tree, parsed[i].Tree)
	}
}

func TestParseHTML_invalid(t *testing.T) {
	_, err := ParseHTML(`<span class="trace_header">OpenGL trace at frame x</span><div class="tree"><ul></ul></div>`)
	assert.Error(t, err)

	_, err = ParseHTML(`<span class="trace_header">OpenGL trace at frame 1</span>`)
	assert.Error(t, err)

	traces, err := ParseHTML("clear")
	assert.NoError(t, err)
	assert.Empty(t, traces)
}
