// Package reaper forwards resource deletion requests to the renderer at a frame boundary.
package reaper

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
)

// Kind is a kind of graphics resource owned by the renderer.
type Kind int

const (
	AttributeArrays Kind = iota
	BufferObjects
	FramebufferObjects
	Samplers
	ShaderPrograms
	Shaders
	Textures

	NumKinds int = iota
)

var (
	ErrUnknownResource = errors.New("unknown resource kind")

	kindNames = [...]string{
		AttributeArrays:    "Attribute Arrays",
		BufferObjects:      "Buffer Objects",
		FramebufferObjects: "Framebuffer Objects",
		Samplers:           "Samplers",
		ShaderPrograms:     "Shader Programs",
		Shaders:            "Shaders",
		Textures:           "Textures",
	}
)

func (k Kind) String() string {
	if k < 0 || int(k) >= NumKinds {
		return "Unknown"
	}
	return kindNames[k]
}

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, NumKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// ParseKind converts a display name such as "Shader Programs" to a Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.TrimSpace(name)
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownResource, "%q", name)
}

// Deleter is the deletion entry point of the renderer.
// DeleteResources must release every resource of the kind and do nothing if
// none is allocated.
type Deleter interface {
	DeleteResources(kind Kind)
}

// Set is an immutable set of resource kinds.
type Set struct {
	s mapset.Set
}

// NewSet returns a set of kinds.
func NewSet(kinds ...Kind) Set {
	s := mapset.NewThreadUnsafeSet()
	for _, k := range kinds {
		s.Add(k)
	}
	return Set{s: s}
}

// ParseSet parses a comma separated list of kind names.
// Empty elements are skipped. An unknown name fails the whole list so that no
// partial deletion is scheduled.
func ParseSet(list string) (Set, error) {
	var kinds []Kind
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := ParseKind(name)
		if err != nil {
			return Set{}, err
		}
		kinds = append(kinds, k)
	}
	return NewSet(kinds...), nil
}

func (s Set) Len() int {
	if s.s == nil {
		return 0
	}
	return s.s.Cardinality()
}

func (s Set) Contains(k Kind) bool {
	return s.s != nil && s.s.Contains(k)
}

// Kinds returns the kinds in ascending order.
func (s Set) Kinds() []Kind {
	if s.s == nil {
		return nil
	}
	kinds := make([]Kind, 0, s.s.Cardinality())
	for v := range s.s.Iter() {
		kinds = append(kinds, v.(Kind))
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s Set) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

// Reap calls d.DeleteResources once for each kind in s.
// It returns the kinds which were forwarded.
func Reap(d Deleter, s Set) []Kind {
	if d == nil {
		return nil
	}
	kinds := s.Kinds()
	for _, k := range kinds {
		d.DeleteResources(k)
	}
	return kinds
}
