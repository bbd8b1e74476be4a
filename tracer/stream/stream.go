package stream

import (
	"bytes"
	"strings"
	"sync/atomic"
)

const (
	// ラベルの深さを表すprefix。深さ1つにつき1回繰り返す。
	LabelPrefix = "--"
	// 関数呼び出しとエラー行のインデント。深さ1つにつき1回繰り返す。
	IndentPrefix = "  "

	LabelBeginMarker = '>'
	LabelEndMarker   = '<'
	ErrorMarker      = '!'
)

// Arg is a formatted argument of a call record.
type Arg struct {
	Name  string
	Value string
}

// Buffer holds the lines written during one captured frame.
// Buffer is not safe for concurrent use. While installed in a Stream it is owned
// by the render goroutine; after Stream.Uninstall the new owner may read it
// freely.
type Buffer struct {
	lines   []string
	partial []byte
}

// Write splits p into lines. An unterminated tail is kept until the next write or Lines().
func (b *Buffer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.partial = append(b.partial, p...)
			break
		}
		if len(b.partial) > 0 {
			b.partial = append(b.partial, p[:i]...)
			b.lines = append(b.lines, string(b.partial))
			b.partial = b.partial[:0]
		} else {
			b.lines = append(b.lines, string(p[:i]))
		}
		p = p[i+1:]
	}
	return n, nil
}

// Lines returns all lines written so far, including an unterminated tail.
func (b *Buffer) Lines() []string {
	if len(b.partial) > 0 {
		b.lines = append(b.lines, string(b.partial))
		b.partial = nil
	}
	return b.lines
}

// Len returns the number of complete lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

// Stream is the sink which the instrumentation writes into.
// Writes are recorded only while a Buffer is installed. Otherwise they are
// discarded, so an untraced frame never accumulates anything.
//
// Label depth tracking (BeginLabel/EndLabel) is not synchronized and must be
// used from the render goroutine only.
type Stream struct {
	active atomic.Pointer[Buffer]
	depth  int
}

// Install makes b the destination of all following writes.
func (s *Stream) Install(b *Buffer) {
	s.depth = 0
	s.active.Store(b)
}

// Uninstall stops recording and hands the installed buffer over to the caller.
// It returns nil when nothing was installed.
func (s *Stream) Uninstall() *Buffer {
	return s.active.Swap(nil)
}

// Active reports whether a buffer is installed.
func (s *Stream) Active() bool {
	return s.active.Load() != nil
}

// Write implements io.Writer. It never fails.
func (s *Stream) Write(p []byte) (int, error) {
	b := s.active.Load()
	if b == nil {
		return len(p), nil
	}
	return b.Write(p)
}

// WriteString writes a single line. A trailing newline is added if missing.
func (s *Stream) WriteString(line string) {
	b := s.active.Load()
	if b == nil {
		return
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	b.Write([]byte(line)) // nolint: errcheck
}

// Depth returns the current label depth.
func (s *Stream) Depth() int {
	return s.depth
}

// Indent returns the prefix for call records at the current depth.
func (s *Stream) Indent() string {
	return strings.Repeat(IndentPrefix, s.depth)
}

// BeginLabel opens a named scope.
func (s *Stream) BeginLabel(text string) {
	s.WriteString(strings.Repeat(LabelPrefix, s.depth) + string(LabelBeginMarker) + text)
	s.depth++
}

// EndLabel closes the innermost scope. Extra calls are ignored.
func (s *Stream) EndLabel() {
	if s.depth == 0 {
		return
	}
	s.depth--
	s.WriteString(strings.Repeat(LabelPrefix, s.depth) + string(LabelEndMarker))
}

// Label opens a scope and returns the function which closes it.
//
//	defer s.Label("Draw scene")()
func (s *Stream) Label(text string) func() {
	s.BeginLabel(text)
	return s.EndLabel
}

// Call writes a call record.
func (s *Stream) Call(name string, args ...Arg) {
	if !s.Active() {
		// フォーマットのコストを省く
		return
	}
	s.WriteString(s.Indent() + FormatCall(name, args))
}

// Error annotates the preceding call record.
func (s *Stream) Error(msg string) {
	s.WriteString(s.Indent() + string(ErrorMarker) + msg)
}

// FormatCall returns "Name(a = 1, b = 2)".
func FormatCall(name string, args []Arg) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.Name != "" {
			sb.WriteString(a.Name)
			sb.WriteString(" = ")
		}
		sb.WriteString(a.Value)
	}
	sb.WriteByte(')')
	return sb.String()
}
