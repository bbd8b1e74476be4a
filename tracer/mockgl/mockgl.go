// Package mockgl is a software stand-in for an OpenGL renderer.
// It keeps a table of allocated resources and writes a call record into the
// trace stream for every entry point, the way an instrumented graphics
// manager does.
package mockgl

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/yuuki0xff/frametrace/logging"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"go.uber.org/zap"
)

const (
	ColorBufferBit   uint32 = 0x00004000
	DepthBufferBit   uint32 = 0x00000100
	StencilBufferBit uint32 = 0x00000400
)

var maskNames = []struct {
	bit  uint32
	name string
}{
	{ColorBufferBit, "GL_COLOR_BUFFER_BIT"},
	{DepthBufferBit, "GL_DEPTH_BUFFER_BIT"},
	{StencilBufferBit, "GL_STENCIL_BUFFER_BIT"},
}

// CallLogLimit is the maximum length of the call log. The older half is
// dropped when it is exceeded.
const CallLogLimit = 1 << 12

// Error is a GL error code.
type Error uint32

const (
	NoError          Error = 0
	InvalidEnum      Error = 0x0500
	InvalidValue     Error = 0x0501
	InvalidOperation Error = 0x0502
	OutOfMemory      Error = 0x0505
)

func (e Error) String() string {
	switch e {
	case NoError:
		return "no error"
	case InvalidEnum:
		return "invalid enumerant"
	case InvalidValue:
		return "invalid value"
	case InvalidOperation:
		return "invalid operation"
	case OutOfMemory:
		return "out of memory"
	default:
		return "unknown error 0x" + strconv.FormatUint(uint64(e), 16)
	}
}

// deleteCalls is the entry point used to release each kind.
var deleteCalls = [reaper.NumKinds]string{
	reaper.AttributeArrays:    "DeleteVertexArrays",
	reaper.BufferObjects:      "DeleteBuffers",
	reaper.FramebufferObjects: "DeleteFramebuffers",
	reaper.Samplers:           "DeleteSamplers",
	reaper.ShaderPrograms:     "DeleteProgram",
	reaper.Shaders:            "DeleteShader",
	reaper.Textures:           "DeleteTextures",
}

// DeleteCall returns the name of the entry point which releases resources of kind k.
func DeleteCall(k reaper.Kind) string {
	if int(k) < 0 || int(k) >= reaper.NumKinds {
		return ""
	}
	return deleteCalls[k]
}

// Renderer implements reaper.Deleter.
// All methods are safe for concurrent use, but a real renderer is driven from
// the render goroutine only.
type Renderer struct {
	stream *stream.Stream
	logger *zap.Logger

	lock          sync.Mutex
	calls         []string
	resources     [reaper.NumKinds][]uint32
	nextID        uint32
	program       uint32
	err           Error
	errorChecking bool
}

// New returns a renderer which traces into s. s may be nil.
func New(s *stream.Stream, logger *zap.Logger) *Renderer {
	if s == nil {
		s = &stream.Stream{}
	}
	return &Renderer{
		stream: s,
		logger: logging.OrNop(logger),
	}
}

// Stream returns the trace stream of the renderer.
func (r *Renderer) Stream() *stream.Stream {
	return r.stream
}

// Calls returns the names of all entry points called so far.
// It records calls regardless of tracing.
func (r *Renderer) Calls() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Renderer) ResetCalls() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.calls = nil
}

// Resources returns the number of allocated resources of kind k.
func (r *Renderer) Resources(k reaper.Kind) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.resources[k])
}

// EnableErrorChecking makes every call check the error state afterwards.
// Errors are written to the trace stream as annotations of the failed call.
func (r *Renderer) EnableErrorChecking(enable bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.errorChecking = enable
}

// SetErrorCode overrides the current error state.
func (r *Renderer) SetErrorCode(e Error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = e
}

// GetError returns and resets the error state.
func (r *Renderer) GetError() Error {
	r.lock.Lock()
	defer r.lock.Unlock()
	e := r.err
	r.err = NoError
	return e
}

// call records a call. It must be called with lock held.
func (r *Renderer) call(name string, args ...stream.Arg) {
	if len(r.calls) >= CallLogLimit {
		n := copy(r.calls, r.calls[len(r.calls)/2:])
		r.calls = r.calls[:n]
	}
	r.calls = append(r.calls, name)
	r.stream.Call(name, args...)
}

// fail sets the error state. The first error is kept until GetError.
func (r *Renderer) fail(name string, e Error) {
	if r.err == NoError {
		r.err = e
	}
	if !r.errorChecking {
		return
	}
	r.stream.Error(e.String())
	r.logger.Error("GL error after call to "+name, zap.Stringer("error", e))
	r.err = NoError
}

func (r *Renderer) Clear(mask uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call("Clear", stream.Arg{Name: "mask", Value: FormatMask(mask)})
	if mask&^(ColorBufferBit|DepthBufferBit|StencilBufferBit) != 0 {
		r.fail("Clear", InvalidValue)
	}
}

func (r *Renderer) gen(name string, k reaper.Kind, n int) []uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call(name, stream.Arg{Name: "n", Value: strconv.Itoa(n)})
	if n < 0 {
		r.fail(name, InvalidValue)
		return nil
	}
	ids := make([]uint32, n)
	for i := range ids {
		r.nextID++
		ids[i] = r.nextID
	}
	r.resources[k] = append(r.resources[k], ids...)
	return ids
}

func (r *Renderer) GenVertexArrays(n int) []uint32 {
	return r.gen("GenVertexArrays", reaper.AttributeArrays, n)
}

func (r *Renderer) GenBuffers(n int) []uint32 {
	return r.gen("GenBuffers", reaper.BufferObjects, n)
}

func (r *Renderer) GenFramebuffers(n int) []uint32 {
	return r.gen("GenFramebuffers", reaper.FramebufferObjects, n)
}

func (r *Renderer) GenSamplers(n int) []uint32 {
	return r.gen("GenSamplers", reaper.Samplers, n)
}

func (r *Renderer) GenTextures(n int) []uint32 {
	return r.gen("GenTextures", reaper.Textures, n)
}

func (r *Renderer) create(name string, k reaper.Kind, args ...stream.Arg) uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call(name, args...)
	r.nextID++
	r.resources[k] = append(r.resources[k], r.nextID)
	return r.nextID
}

func (r *Renderer) CreateShader(typ string) uint32 {
	return r.create("CreateShader", reaper.Shaders, stream.Arg{Name: "type", Value: typ})
}

func (r *Renderer) CreateProgram() uint32 {
	return r.create("CreateProgram", reaper.ShaderPrograms)
}

// UseProgram binds a program. 0 unbinds.
func (r *Renderer) UseProgram(program uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call("UseProgram", stream.Arg{Name: "program", Value: strconv.FormatUint(uint64(program), 10)})
	if program != 0 && !contains(r.resources[reaper.ShaderPrograms], program) {
		r.fail("UseProgram", InvalidValue)
		return
	}
	r.program = program
}

// Uniform4fv sets a vec4 uniform of the bound program.
// It fails with InvalidOperation when no program is bound.
func (r *Renderer) Uniform4fv(location, count int, value []float32) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call("Uniform4fv",
		stream.Arg{Name: "location", Value: strconv.Itoa(location)},
		stream.Arg{Name: "count", Value: strconv.Itoa(count)},
		stream.Arg{Name: "value", Value: FormatFloats(value)},
	)
	switch {
	case r.program == 0:
		r.fail("Uniform4fv", InvalidOperation)
	case count < 0 || len(value) < 4*count:
		r.fail("Uniform4fv", InvalidValue)
	}
}

func (r *Renderer) DrawArrays(mode string, first, count int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.call("DrawArrays",
		stream.Arg{Name: "mode", Value: mode},
		stream.Arg{Name: "first", Value: strconv.Itoa(first)},
		stream.Arg{Name: "count", Value: strconv.Itoa(count)},
	)
	if r.program == 0 {
		r.fail("DrawArrays", InvalidOperation)
	}
}

// DrawScene renders a small scene. Missing resources of every kind are
// allocated on the way, so after the first call the renderer owns at least
// one resource of each kind.
func (r *Renderer) DrawScene() {
	s := r.stream
	defer s.Label("Draw scene")()

	r.Clear(ColorBufferBit | DepthBufferBit)

	func() {
		defer s.Label("Setup")()
		if r.Resources(reaper.AttributeArrays) == 0 {
			r.GenVertexArrays(1)
		}
		if r.Resources(reaper.BufferObjects) == 0 {
			r.GenBuffers(2)
		}
		if r.Resources(reaper.FramebufferObjects) == 0 {
			r.GenFramebuffers(1)
		}
		if r.Resources(reaper.Textures) == 0 {
			r.GenTextures(1)
		}
		if r.Resources(reaper.Samplers) == 0 {
			r.GenSamplers(1)
		}
		if r.Resources(reaper.Shaders) == 0 {
			r.CreateShader("GL_VERTEX_SHADER")
			r.CreateShader("GL_FRAGMENT_SHADER")
		}
		if r.Resources(reaper.ShaderPrograms) == 0 {
			r.CreateProgram()
		}
	}()

	func() {
		defer s.Label("Shape")()
		r.UseProgram(r.firstProgram())
		r.Uniform4fv(0, 1, []float32{1, 0.5, 0.25, 1})
		r.DrawArrays("GL_TRIANGLES", 0, 3)
		r.UseProgram(0)
	}()
}

func (r *Renderer) firstProgram() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	if p := r.resources[reaper.ShaderPrograms]; len(p) > 0 {
		return p[0]
	}
	return 0
}

// DeleteResources releases every resource of kind k.
// Programs and shaders are deleted one call per object, the rest in a
// single call. Nothing is called when no resource is allocated.
func (r *Renderer) DeleteResources(k reaper.Kind) {
	if int(k) < 0 || int(k) >= reaper.NumKinds {
		return
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	ids := r.resources[k]
	if len(ids) == 0 {
		return
	}
	name := deleteCalls[k]
	switch k {
	case reaper.ShaderPrograms, reaper.Shaders:
		arg := "shader"
		if k == reaper.ShaderPrograms {
			arg = "program"
		}
		for _, id := range ids {
			r.call(name, stream.Arg{Name: arg, Value: strconv.FormatUint(uint64(id), 10)})
			if k == reaper.ShaderPrograms && id == r.program {
				r.program = 0
			}
		}
	default:
		r.call(name,
			stream.Arg{Name: "n", Value: strconv.Itoa(len(ids))},
			stream.Arg{Name: "ids", Value: formatIDs(ids)},
		)
	}
	r.resources[k] = nil
	r.logger.Debug("deleted resources", zap.Stringer("kind", k), zap.Int("count", len(ids)))
}

// FormatMask returns "GL_COLOR_BUFFER_BIT | GL_DEPTH_BUFFER_BIT".
func FormatMask(mask uint32) string {
	var names []string
	for _, m := range maskNames {
		if mask&m.bit != 0 {
			names = append(names, m.name)
			mask &^= m.bit
		}
	}
	if mask != 0 || len(names) == 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(mask), 16))
	}
	return strings.Join(names, " | ")
}

// FormatFloats returns the address of the array followed by its elements,
// e.g. "0xc000012345 -> [3; 4; 5; 6]".
func FormatFloats(v []float32) string {
	var sb strings.Builder
	if len(v) == 0 {
		sb.WriteString("0x0")
	} else {
		fmt.Fprintf(&sb, "%p", &v[0])
	}
	sb.WriteString(" -> [")
	for i, f := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func formatIDs(ids []uint32) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.FormatUint(uint64(id), 10)
	}
	return "[" + strings.Join(s, "; ") + "]"
}

func contains(ids []uint32, id uint32) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
