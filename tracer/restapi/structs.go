package restapi

import (
	"strings"

	"github.com/yuuki0xff/frametrace/tracer/coordinator"
)

// TraceOptions are the parameters of a trace_next_frame request.
type TraceOptions struct {
	// Nonblockingがtrueなら、次のフレームを待たずに直前までの結果を返す。
	Nonblocking bool
	// Delete is a list of resource kind names such as "Shader Programs".
	Delete []string
}

// Params returns the query parameters of the request.
func (o TraceOptions) Params() map[string]string {
	p := map[string]string{}
	if o.Nonblocking {
		p[coordinator.ParamNonblocking] = ""
	}
	if len(o.Delete) > 0 {
		p[coordinator.ParamResourcesToDelete] = strings.Join(o.Delete, ",")
	}
	return p
}
