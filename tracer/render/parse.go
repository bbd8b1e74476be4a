package render

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

// ParseHTML reads a document produced by HTMLRender back into traces.
// The result has the same structure as the rendered trees. Label ids are
// discarded.
func ParseHTML(doc string) ([]Trace, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse html")
	}

	headers := d.Find("span.trace_header")
	trees := d.Find("div.tree")
	if headers.Length() != trees.Length() {
		return nil, errors.Errorf("header and tree count mismatch: %d headers, %d trees", headers.Length(), trees.Length())
	}

	traces := make([]Trace, 0, headers.Length())
	for i := 0; i < headers.Length(); i++ {
		text := headers.Eq(i).Text()
		if !strings.HasPrefix(text, HeaderText) {
			return nil, errors.Errorf("invalid header: %q", text)
		}
		frame, err := strconv.ParseUint(strings.TrimPrefix(text, HeaderText), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid frame number in header %q", text)
		}
		traces = append(traces, Trace{
			Frame: frame,
			Tree:  parseList(trees.Eq(i).ChildrenFiltered("ul").First()),
		})
	}
	return traces, nil
}

func parseList(ul *goquery.Selection) tree.Tree {
	nodes := tree.Tree{}
	var last *tree.Call
	ul.Children().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "li":
			if s.ChildrenFiltered("input").Length() > 0 {
				l := &tree.Label{
					Text:     s.ChildrenFiltered("label").Text(),
					Children: parseList(s.ChildrenFiltered("ul").First()),
				}
				if tree.Tree(l.Children).Len() == 0 {
					l.Children = nil
				}
				nodes = append(nodes, l)
				last = nil
				return
			}
			last = parseCall(s)
			nodes = append(nodes, last)
		case "span":
			if last == nil || !s.HasClass("trace_error") {
				return
			}
			desc := strings.TrimPrefix(s.Text(), ErrorText)
			last.Error = strings.TrimPrefix(desc, last.String()+": ")
		}
	})
	return nodes
}

func parseCall(li *goquery.Selection) *tree.Call {
	c := &tree.Call{
		Function: li.ChildrenFiltered("span.trace_function").Text(),
	}
	var name string
	li.ChildrenFiltered("span").Each(func(_ int, s *goquery.Selection) {
		switch {
		case s.HasClass("trace_arg_name"):
			name = s.Text()
		case s.HasClass("trace_arg_value"):
			c.Args = append(c.Args, stream.Arg{Name: name, Value: s.Text()})
			name = ""
		}
	})
	return c
}

// Depths returns the depth of every node in depth-first order.
func Depths(t tree.Tree) []int {
	var depths []int
	t.Walk(func(_ tree.Node, depth int) {
		depths = append(depths, depth)
	})
	return depths
}
