// Package tree builds the call tree of one captured frame from its trace lines.
package tree

import (
	"strings"

	"github.com/yuuki0xff/frametrace/tracer/stream"
)

// Node is either *Label or *Call.
type Node interface {
	node()
}

// Label is a named scope opened by the instrumented code.
type Label struct {
	Text     string
	Children []Node
}

// Call is a single graphics call.
type Call struct {
	Function string
	Args     []stream.Arg
	// 空ならエラーなし
	Error string
}

func (*Label) node() {}
func (*Call) node()  {}

// HasError reports whether the call failed.
func (c *Call) HasError() bool {
	return c.Error != ""
}

// String returns the call in the same form as the instrumentation wrote it.
func (c *Call) String() string {
	return stream.FormatCall(c.Function, c.Args)
}

// Tree is the ordered list of top-level nodes of one frame.
// A published Tree must not be modified.
type Tree []Node

// Walk calls fn for every node in depth-first order.
// depth is 0 for top-level nodes.
func (t Tree) Walk(fn func(n Node, depth int)) {
	walk(t, 0, fn)
}

func walk(nodes []Node, depth int, fn func(n Node, depth int)) {
	for _, n := range nodes {
		fn(n, depth)
		if l, ok := n.(*Label); ok {
			walk(l.Children, depth+1, fn)
		}
	}
}

// Len returns the number of nodes in the tree.
func (t Tree) Len() int {
	n := 0
	t.Walk(func(Node, int) { n++ })
	return n
}

// ParseCall splits "Name(a = 1, b = f(2, 3))" into the function name and arguments.
// Separators inside nested brackets are kept in the value.
// An argument without " = " has an empty name.
func ParseCall(text string) *Call {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return &Call{Function: strings.TrimSpace(text)}
	}
	c := &Call{Function: text[:open]}

	body := text[open+1:]
	if strings.HasSuffix(body, ")") {
		body = body[:len(body)-1]
	}
	for _, raw := range splitArgs(body) {
		if raw == "" {
			continue
		}
		if i := strings.Index(raw, " = "); i >= 0 {
			c.Args = append(c.Args, stream.Arg{Name: raw[:i], Value: raw[i+3:]})
		} else {
			c.Args = append(c.Args, stream.Arg{Value: raw})
		}
	}
	return c
}

func splitArgs(body string) []string {
	var args []string
	nest := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(', '[', '{':
			nest++
		case ')', ']', '}':
			if nest > 0 {
				nest--
			}
		case ',':
			if nest == 0 && i+1 < len(body) && body[i+1] == ' ' {
				args = append(args, body[start:i])
				start = i + 2
				i++
			}
		}
	}
	return append(args, body[start:])
}
