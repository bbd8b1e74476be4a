package render

import (
	"fmt"
	"io"

	"github.com/ajstarks/svgo"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

const (
	DefaultSVGWidth  = 1200
	DefaultRowHeight = 20
	textMargin       = 4
)

// SVGRender draws an icicle chart of one trace.
// Every call is one column. A label is as wide as all of its descendants and is
// drawn one row above them.
type SVGRender struct {
	Trace     Trace
	Width     int
	RowHeight int
	Colors    Colors
}

type box struct {
	node        tree.Node
	depth       int
	left, width int // 単位: カラム
}

func (r *SVGRender) Render(w io.Writer) {
	width := r.Width
	if width <= 0 {
		width = DefaultSVGWidth
	}
	rowHeight := r.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}

	boxes, columns, rows := layout(r.Trace.Tree)
	if columns == 0 {
		columns = 1
	}
	scale := float64(width) / float64(columns)
	height := (rows + 1) * rowHeight

	canv := svg.New(w)
	canv.Start(width, height)
	canv.Title(fmt.Sprintf("%s%d", HeaderText, r.Trace.Frame))
	canv.Text(textMargin, rowHeight-textMargin, fmt.Sprintf("%s%d", HeaderText, r.Trace.Frame), "font-family:monospace;font-size:12px")

	for _, b := range boxes {
		x := int(float64(b.left) * scale)
		bw := int(float64(b.width)*scale) - 1
		if bw < 1 {
			bw = 1
		}
		y := (b.depth + 1) * rowHeight

		style := fmt.Sprintf(`fill:%s`, r.Colors.GetByNode(b.node, b.depth))
		var text string
		switch n := b.node.(type) {
		case *tree.Label:
			text = n.Text
		case *tree.Call:
			text = n.Function
			if n.HasError() {
				style += ";stroke:" + ErrorColor + ";stroke-width:2"
			}
		}
		canv.Rect(x, y, bw, rowHeight-1, style)
		canv.Text(x+textMargin, y+rowHeight-textMargin, text, "font-family:monospace;font-size:11px")
	}
	canv.End()
}

// layout places every node of t in columns.
// It returns the boxes in depth-first order, the total width in columns and the
// number of rows.
func layout(t tree.Tree) (boxes []box, columns int, rows int) {
	var place func(nodes []tree.Node, depth, left int) int
	place = func(nodes []tree.Node, depth, left int) int {
		if depth+1 > rows && len(nodes) > 0 {
			rows = depth + 1
		}
		x := left
		for _, n := range nodes {
			i := len(boxes)
			boxes = append(boxes, box{node: n, depth: depth, left: x})
			w := 1
			if l, ok := n.(*tree.Label); ok && len(l.Children) > 0 {
				w = place(l.Children, depth+1, x)
			}
			boxes[i].width = w
			x += w
		}
		return x - left
	}
	columns = place(t, 0, 0)
	return
}
