// Package coordinator maps the actions of the tracing page onto the capture rendezvous.
// It is independent of the transport. restapi binds it to HTTP.
package coordinator

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/yuuki0xff/frametrace/logging"
	"github.com/yuuki0xff/frametrace/metrics"
	"github.com/yuuki0xff/frametrace/tracer/capture"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/render"
	"github.com/yuuki0xff/frametrace/tracer/tree"
	"go.uber.org/zap"
)

const (
	ActionIndex          = "index.html"
	ActionTraceNextFrame = "trace_next_frame"
	ActionClear          = "clear"
	ActionTraceSVG       = "trace.svg"

	ParamNonblocking       = "nonblocking"
	ParamResourcesToDelete = "resources_to_delete"

	ClearBody = "clear"

	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeSVG  = "image/svg+xml"
)

// Response is a transport independent reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

type Options struct {
	Rendezvous *capture.Rendezvous
	// Index is the content of the tracing page.
	Index   []byte
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// SVGColors is the coloring rule of the overview image.
	SVGColors render.ColorRule
}

// Coordinator holds no state except the rendezvous it drives.
type Coordinator struct {
	rv        *capture.Rendezvous
	index     []byte
	logger    *zap.Logger
	metrics   *metrics.Metrics
	svgColors render.ColorRule
}

func New(opts Options) *Coordinator {
	if opts.Rendezvous == nil {
		panic("coordinator: Rendezvous is required")
	}
	return &Coordinator{
		rv:        opts.Rendezvous,
		index:     opts.Index,
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		svgColors: opts.SVGColors,
	}
}

func (c *Coordinator) Rendezvous() *capture.Rendezvous {
	return c.rv
}

// Handle executes action. ctx bounds the wait of a blocking trace request.
func (c *Coordinator) Handle(ctx context.Context, action string, params url.Values) Response {
	var res Response
	label := action
	switch action {
	case "", ActionIndex:
		label = ActionIndex
		res = Response{
			Status:      http.StatusOK,
			ContentType: ContentTypeHTML,
			Body:        c.index,
		}
	case ActionTraceNextFrame:
		res = c.traceNextFrame(ctx, params)
	case ActionClear:
		c.rv.Clear()
		res = Response{
			Status:      http.StatusOK,
			ContentType: ContentTypeText,
			Body:        []byte(ClearBody),
		}
	case ActionTraceSVG:
		res = c.traceSVG()
	default:
		label = "unknown"
		res = textResponse(http.StatusNotFound, "not found: "+action)
	}
	c.metrics.Request(label, strconv.Itoa(res.Status))
	return res
}

func (c *Coordinator) traceNextFrame(ctx context.Context, params url.Values) Response {
	_, nonblocking := params[ParamNonblocking]
	deletes, err := reaper.ParseSet(params.Get(ParamResourcesToDelete))
	if err != nil {
		c.metrics.Arm(metrics.ArmRejected)
		return c.errorResponse(err)
	}

	snap, err := c.rv.TraceNextFrame(ctx, !nonblocking, deletes)
	if err != nil {
		return c.errorResponse(err)
	}
	return Response{
		Status:      http.StatusOK,
		ContentType: ContentTypeHTML,
		Body:        []byte(Document(snap)),
	}
}

func (c *Coordinator) traceSVG() Response {
	snap := c.rv.Snapshot()
	t := render.Trace{Frame: snap.Frame, Tree: tree.Tree{}}
	if latest, ok := snap.Latest(); ok {
		t = render.Trace{Frame: latest.Frame, Tree: latest.Tree}
	}
	r := render.SVGRender{
		Trace:  t,
		Colors: render.Colors{ColorRule: c.svgColors},
	}
	var buf bytes.Buffer
	r.Render(&buf)
	return Response{
		Status:      http.StatusOK,
		ContentType: ContentTypeSVG,
		Body:        buf.Bytes(),
	}
}

func (c *Coordinator) errorResponse(err error) Response {
	status := StatusOf(err)
	if status >= 500 {
		c.logger.Warn("trace request failed", zap.Error(err))
	} else {
		c.logger.Debug("trace request rejected", zap.Error(err), zap.Int("status", status))
	}
	return textResponse(status, err.Error())
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	switch errors.Cause(err) {
	case nil:
		return http.StatusOK
	case capture.ErrBusy:
		return http.StatusConflict
	case capture.ErrCleared:
		return http.StatusGone
	case reaper.ErrUnknownResource:
		return http.StatusBadRequest
	case context.Canceled, context.DeadlineExceeded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Traces converts the history of snap.
func Traces(snap capture.Snapshot) []render.Trace {
	traces := make([]render.Trace, len(snap.Captures))
	for i, c := range snap.Captures {
		traces[i] = render.Trace{Frame: c.Frame, Tree: c.Tree}
	}
	return traces
}

// Document renders the history of snap.
func Document(snap capture.Snapshot) string {
	var r render.HTMLRender
	return r.RenderTraces(snap.Frame, Traces(snap))
}

func textResponse(status int, msg string) Response {
	return Response{
		Status:      status,
		ContentType: ContentTypeText,
		Body:        []byte(msg),
	}
}
