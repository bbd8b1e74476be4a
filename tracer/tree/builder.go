package tree

import "github.com/yuuki0xff/frametrace/tracer/stream"

type openLabel struct {
	label *Label
	depth int
}

// Builder converts trace lines into a Tree.
// A zero Builder is ready to use. It is not safe for concurrent use.
//
// Malformed input never fails:
//   - a label end which matches no open label is ignored.
//   - labels still open at the end of the stream are closed by Finish().
//   - an error line without a preceding call is dropped.
type Builder struct {
	root     Tree
	stack    []openLabel
	lastCall *Call
}

// Build is a shorthand of Builder.Add for all lines followed by Finish.
func Build(lines []string) Tree {
	var b Builder
	for _, l := range lines {
		b.Add(stream.ParseLine(l))
	}
	return b.Finish()
}

// Add consumes one line.
func (b *Builder) Add(l stream.Line) {
	switch l.Kind {
	case stream.LabelBeginLine:
		// 同じ深さ、またはより深いラベルは閉じられたと見なす。
		b.closeFrom(l.Depth)
		label := &Label{Text: l.Text}
		b.append(label)
		b.stack = append(b.stack, openLabel{label: label, depth: l.Depth})
	case stream.LabelEndLine:
		b.closeFrom(l.Depth)
	case stream.CallLine:
		c := ParseCall(l.Text)
		b.append(c)
		b.lastCall = c
	case stream.ErrorLine:
		if b.lastCall == nil {
			return
		}
		if b.lastCall.Error != "" {
			b.lastCall.Error += "; " + l.Text
		} else {
			b.lastCall.Error = l.Text
		}
	case stream.EmptyLine:
		// nothing to do
	}
}

// Finish closes all open labels and returns the tree.
// The Builder must not be used after Finish.
func (b *Builder) Finish() Tree {
	b.stack = nil
	b.lastCall = nil
	root := b.root
	b.root = nil
	if root == nil {
		root = Tree{}
	}
	return root
}

func (b *Builder) append(n Node) {
	if len(b.stack) == 0 {
		b.root = append(b.root, n)
		return
	}
	top := b.stack[len(b.stack)-1].label
	top.Children = append(top.Children, n)
}

// closeFrom pops all labels whose depth is depth or deeper.
func (b *Builder) closeFrom(depth int) {
	i := len(b.stack)
	for i > 0 && b.stack[i-1].depth >= depth {
		i--
	}
	b.stack = b.stack[:i]
}
