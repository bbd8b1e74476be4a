package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream_discardWhenInactive(t *testing.T) {
	a := assert.New(t)
	var s Stream
	a.False(s.Active())

	n, err := fmt.Fprintln(&s, "Clear(mask = GL_COLOR_BUFFER_BIT)")
	a.NoError(err)
	a.Equal(len("Clear(mask = GL_COLOR_BUFFER_BIT)\n"), n)
	s.Call("Flush")
	s.BeginLabel("ignored")
	s.EndLabel()
	a.Nil(s.Uninstall())
}

func TestStream_InstallUninstall(t *testing.T) {
	a := assert.New(t)
	var s Stream
	buf := &Buffer{}
	s.Install(buf)
	a.True(s.Active())

	end := s.Label("Top level label")
	s.Call("Clear", Arg{"mask", "GL_COLOR_BUFFER_BIT"})
	s.BeginLabel("Nested label")
	s.Call("Uniform4fv", Arg{"location", "2"}, Arg{"count", "1"})
	s.Error("invalid operation")
	s.EndLabel()
	end()
	s.EndLabel() // spurious

	a.Equal(buf, s.Uninstall())
	a.False(s.Active())
	s.Call("Flush") // dropped

	a.Equal([]string{
		">Top level label",
		"  Clear(mask = GL_COLOR_BUFFER_BIT)",
		"-->Nested label",
		"    Uniform4fv(location = 2, count = 1)",
		"    !invalid operation",
		"--<",
		"<",
	}, buf.Lines())
}

func TestBuffer_Write(t *testing.T) {
	a := assert.New(t)
	buf := &Buffer{}
	buf.Write([]byte("ab"))   // nolint: errcheck
	buf.Write([]byte("c\nd")) // nolint: errcheck
	buf.Write([]byte("\n\n")) // nolint: errcheck
	a.Equal(3, buf.Len())
	buf.Write([]byte("tail")) // nolint: errcheck
	a.Equal([]string{"abc", "d", "", "tail"}, buf.Lines())
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		raw  string
		want Line
	}{
		{">Top level label:", Line{Kind: LabelBeginLine, Depth: 0, Text: "Top level label"}},
		{"-->Nested label", Line{Kind: LabelBeginLine, Depth: 1, Text: "Nested label"}},
		{"--<", Line{Kind: LabelEndLine, Depth: 1}},
		{"Clear(mask = GL_COLOR_BUFFER_BIT)", Line{Kind: CallLine, Depth: 0, Text: "Clear(mask = GL_COLOR_BUFFER_BIT)"}},
		{"    Flush()", Line{Kind: CallLine, Depth: 2, Text: "Flush()"}},
		{"  !invalid operation", Line{Kind: ErrorLine, Depth: 1, Text: "invalid operation"}},
		{"   ", Line{Kind: EmptyLine, Depth: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLine(tt.raw), tt.raw)
	}
}

func TestFormatCall(t *testing.T) {
	a := assert.New(t)
	a.Equal("Flush()", FormatCall("Flush", nil))
	a.Equal("Enable(GL_BLEND)", FormatCall("Enable", []Arg{{Value: "GL_BLEND"}}))
	a.Equal("Viewport(x = 0, y = 0)", FormatCall("Viewport", []Arg{{"x", "0"}, {"y", "0"}}))
}
