package stream

type Kind int

const (
	CallLine Kind = iota
	LabelBeginLine
	LabelEndLine
	ErrorLine
	EmptyLine
)

func (k Kind) String() string {
	switch k {
	case CallLine:
		return "call"
	case LabelBeginLine:
		return "label-begin"
	case LabelEndLine:
		return "label-end"
	case ErrorLine:
		return "error"
	case EmptyLine:
		return "empty"
	default:
		return "unknown"
	}
}

// Line is a parsed trace line.
type Line struct {
	Kind Kind
	// prefixの長さから復元した深さ
	Depth int
	// ラベル名、関数呼び出しの文字列、またはエラーメッセージ。
	Text string
}

// ParseLine classifies a raw line.
// The depth is the length of the leading run of '-' and ' ' divided by the
// prefix width. A label name loses one trailing ':'.
func ParseLine(raw string) Line {
	i := 0
	for i < len(raw) && (raw[i] == '-' || raw[i] == ' ') {
		i++
	}
	depth := i / len(LabelPrefix)
	body := raw[i:]
	if body == "" {
		return Line{Kind: EmptyLine, Depth: depth}
	}

	switch body[0] {
	case LabelBeginMarker:
		text := body[1:]
		if n := len(text); n > 0 && text[n-1] == ':' {
			text = text[:n-1]
		}
		return Line{Kind: LabelBeginLine, Depth: depth, Text: text}
	case LabelEndMarker:
		return Line{Kind: LabelEndLine, Depth: depth}
	case ErrorMarker:
		return Line{Kind: ErrorLine, Depth: depth, Text: body[1:]}
	default:
		return Line{Kind: CallLine, Depth: depth, Text: body}
	}
}
