package render

import (
	"io"
	"strconv"
	"strings"

	"github.com/yuuki0xff/frametrace/tracer/tree"
)

const (
	HeaderText    = "OpenGL trace at frame "
	ErrorText     = "***OpenGL Error: "
	TraceSplitter = "<hr>\n"
	EmptyList     = "<ul>\n</ul>\n"
)

// '>'はエスケープしない。"0x10 -> [3; 4]" のような値をそのまま表示するため。
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")

// Trace is one captured frame to render.
type Trace struct {
	Frame uint64
	Tree  tree.Tree
}

// HTMLRender serializes trees into collapsible HTML lists.
// Label ids are unique within one render pass. Each call of Render, RenderTree
// or RenderTraces is a new pass and starts the ids from zero.
type HTMLRender struct {
	nextID int
	sb     strings.Builder
}

// RenderTree returns the list markup of t.
func (r *HTMLRender) RenderTree(t tree.Tree) string {
	r.reset()
	r.list(t)
	return r.sb.String()
}

// RenderTraces returns a document containing all traces joined by TraceSplitter.
// If traces is empty, the document consists of the header for frame and an
// empty tree.
func (r *HTMLRender) RenderTraces(frame uint64, traces []Trace) string {
	r.reset()
	if len(traces) == 0 {
		r.trace(Trace{Frame: frame, Tree: tree.Tree{}})
		return r.sb.String()
	}
	for i, t := range traces {
		if i > 0 {
			r.sb.WriteString(TraceSplitter)
		}
		r.trace(t)
	}
	return r.sb.String()
}

// Render writes the document of RenderTraces to w.
func (r *HTMLRender) Render(w io.Writer, frame uint64, traces []Trace) error {
	_, err := io.WriteString(w, r.RenderTraces(frame, traces))
	return err
}

func (r *HTMLRender) reset() {
	r.nextID = 0
	r.sb.Reset()
}

func (r *HTMLRender) trace(t Trace) {
	r.sb.WriteString(`<span class="trace_header">`)
	r.sb.WriteString(HeaderText)
	r.sb.WriteString(strconv.FormatUint(t.Frame, 10))
	r.sb.WriteString("</span><br><br>\n")
	r.sb.WriteString("<div class=\"tree\">\n")
	r.list(t.Tree)
	r.sb.WriteString("</div>\n")
}

func (r *HTMLRender) list(nodes []tree.Node) {
	r.sb.WriteString("<ul>\n")
	for _, n := range nodes {
		switch n := n.(type) {
		case *tree.Label:
			r.label(n)
		case *tree.Call:
			r.call(n)
		}
	}
	r.sb.WriteString("</ul>\n")
}

func (r *HTMLRender) label(l *tree.Label) {
	id := "list-" + strconv.Itoa(r.nextID)
	r.nextID++

	r.sb.WriteString(`<li><input type="checkbox" checked="checked" id="`)
	r.sb.WriteString(id)
	r.sb.WriteString(`"/><label for="`)
	r.sb.WriteString(id)
	r.sb.WriteString(`">`)
	r.sb.WriteString(textEscaper.Replace(l.Text))
	r.sb.WriteString("</label>\n")
	r.list(l.Children)
	r.sb.WriteString("</li>\n")
}

func (r *HTMLRender) call(c *tree.Call) {
	r.sb.WriteString(`<li><span class="trace_function">`)
	r.sb.WriteString(textEscaper.Replace(c.Function))
	r.sb.WriteString("</span>(")
	for i, a := range c.Args {
		if i > 0 {
			r.sb.WriteString(", ")
		}
		if a.Name != "" {
			r.sb.WriteString(`<span class="trace_arg_name">`)
			r.sb.WriteString(textEscaper.Replace(a.Name))
			r.sb.WriteString("</span> = ")
		}
		r.sb.WriteString(`<span class="trace_arg_value">`)
		r.sb.WriteString(textEscaper.Replace(a.Value))
		r.sb.WriteString("</span>")
	}
	r.sb.WriteString(")</li>\n")

	if c.HasError() {
		// エラーは<li>の中ではなく、直後に置く。
		r.sb.WriteString(`<br><span class="trace_error">`)
		r.sb.WriteString(ErrorText)
		r.sb.WriteString(textEscaper.Replace(c.String() + ": " + c.Error))
		r.sb.WriteString("</span><br><br>\n")
	}
}
