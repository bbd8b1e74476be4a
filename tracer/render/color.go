package render

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"

	"github.com/yuuki0xff/frametrace/tracer/tree"
)

type ColorRule int

const (
	ColoringPerFunction ColorRule = iota
	ColoringPerDepth
	ColoringPerKind
)

const (
	DefaultNColors = 12
	// エラーになった関数呼び出しの枠線の色
	ErrorColor = "#d00000"
)

var (
	ColorRuleNames = map[string]ColorRule{
		"function": ColoringPerFunction,
		"depth":    ColoringPerDepth,
		"kind":     ColoringPerKind,
	}
)

type Colors struct {
	ColorRule ColorRule
	NColors   int
	strColors []string
	hash      hash.Hash64
}

// GetByNode returns the fill color of n which is placed at depth.
func (c *Colors) GetByNode(n tree.Node, depth int) string {
	switch c.ColorRule {
	case ColoringPerFunction:
		switch n := n.(type) {
		case *tree.Call:
			return c.GetByString(n.Function)
		case *tree.Label:
			return c.GetByString(n.Text)
		}
		panic("Unsupported node")
	case ColoringPerDepth:
		return c.GetByInt(depth)
	case ColoringPerKind:
		if _, ok := n.(*tree.Label); ok {
			return c.GetByInt(0)
		}
		return c.GetByInt(1)
	default:
		panic("Unsupported rule")
	}
}

func (c *Colors) GetByInt(value int) string {
	bs := make([]byte, 4)
	binary.LittleEndian.PutUint32(bs, uint32(value))
	return c.GetByBytes(bs)
}

func (c *Colors) GetByString(name string) string {
	return c.GetByBytes([]byte(name))
}

func (c *Colors) GetByBytes(value []byte) string {
	if c.strColors == nil {
		c.Init()
	}
	c.hash.Reset()
	if _, err := c.hash.Write(value); err != nil {
		panic(err)
	}
	return c.strColors[c.hash.Sum64()%uint64(c.NColors)]
}

func (c *Colors) Init() {
	if c.NColors <= 0 {
		c.NColors = DefaultNColors
	}
	c.strColors = generateColors(c.NColors, 0.6, 0.7)
	c.hash = fnv.New64()
}

func generateColors(ncolors int, s, v float64) []string {
	if ncolors < 0 {
		panic("ncolors must not be less than 0.")
	}
	if s > v {
		panic("s <= v is not satisfied.")
	}

	colors := make([]string, ncolors)
	for i := range colors {
		h := float64(i) / float64(ncolors)
		colors[i] = colorStr(hsv2rgb(h, s, v))
	}
	return colors
}

// convert color space from HSV to RGB
// 0.0 <= h,s,v <= 1.0
// 0 <= return_value <= 255
func hsv2rgb(h, s, v float64) [3]int {
	hh := int(360*h/60) % 6
	c := s
	x := c * (1 - math.Abs(float64((hh%2)-1)))
	convertTable := [][3]float64{
		{c, x, 0},
		{x, c, 0},
		{0, c, x},
		{0, x, c},
		{x, 0, c},
		{c, 0, x},
	}

	rgb := convertTable[hh]
	return [3]int{
		int(255 * (v - c + rgb[0])), // R
		int(255 * (v - c + rgb[1])), // G
		int(255 * (v - c + rgb[2])), // B
	}
}

func colorStr(rgb [3]int) string {
	return fmt.Sprintf("#%02x%02x%02x",
		rgb[0], rgb[1], rgb[2])
}
