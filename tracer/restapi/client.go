package restapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/levigross/grequests"
	"github.com/pkg/errors"
	"github.com/yuuki0xff/frametrace/info"
	"github.com/yuuki0xff/frametrace/tracer/coordinator"
	"github.com/yuuki0xff/frametrace/tracer/render"
)

const (
	UserAgent = info.AppName + "-restapi-client"
)

// Client helps calling the tracing API of a frametrace server.
type Client struct {
	BaseUrl string
	s       *grequests.Session
}

type ClientWithCtx struct {
	Client
	ctx context.Context
}

// Init initialize the client.
func (c *Client) Init() error {
	c.BaseUrl = strings.TrimSuffix(c.BaseUrl, "/")
	c.s = grequests.NewSession(nil)
	return nil
}

// url construct an absolute URL from a relative URL.
func (c Client) url(relativeUrls ...string) string {
	return c.BaseUrl + TracingPath + "/" + strings.Join(relativeUrls, "/")
}

// ro returns an initialized RequestOptions struct.
func (c ClientWithCtx) ro() grequests.RequestOptions {
	return grequests.RequestOptions{
		UserAgent: UserAgent,
		Context:   c.ctx,
	}
}

// WithCtx returns a new ClientWithCtx object with specified context.
//
// this method MUST use value receiver.
func (c Client) WithCtx(ctx context.Context) ClientWithCtx {
	return ClientWithCtx{
		Client: c,
		ctx:    ctx,
	}
}

// Index returns the tracing page.
func (c ClientWithCtx) Index() ([]byte, error) {
	ro := c.ro()
	return c.getBytes(c.url(coordinator.ActionIndex), &ro)
}

// TraceNextFrame requests a trace of the next frame and returns the document.
// Unless opts.Nonblocking is set, it blocks until the frame was rendered or ctx is done.
func (c ClientWithCtx) TraceNextFrame(opts TraceOptions) (string, error) {
	ro := c.ro()
	ro.Params = opts.Params()
	b, err := c.getBytes(c.url(coordinator.ActionTraceNextFrame), &ro)
	return string(b), err
}

// Traces is the same as TraceNextFrame, but parses the document.
func (c ClientWithCtx) Traces(opts TraceOptions) ([]render.Trace, error) {
	doc, err := c.TraceNextFrame(opts)
	if err != nil {
		return nil, err
	}
	traces, err := render.ParseHTML(doc)
	return traces, errors.Wrap(err, "server returned invalid document")
}

// Clear removes all traces on the server.
func (c ClientWithCtx) Clear() error {
	ro := c.ro()
	url := c.url(coordinator.ActionClear)
	b, err := c.getBytes(url, &ro)
	if err != nil {
		return err
	}
	if string(b) != coordinator.ClearBody {
		return errors.Errorf("GET %s returned unexpected body: %q", url, b)
	}
	return nil
}

// TraceSVG returns the overview image of the latest trace.
func (c ClientWithCtx) TraceSVG() ([]byte, error) {
	ro := c.ro()
	return c.getBytes(c.url(coordinator.ActionTraceSVG), &ro)
}

func (c Client) get(url string, ro *grequests.RequestOptions) (*grequests.Response, error) {
	r, err := wrapResp(c.s.Get(url, ro))
	if err != nil {
		return nil, err
	}
	switch r.StatusCode {
	case http.StatusOK:
		return r, nil
	default:
		defer r.Close() // nolint: errcheck
		return nil, errStatus(r)
	}
}
func (c Client) getBytes(url string, ro *grequests.RequestOptions) ([]byte, error) {
	r, err := c.get(url, ro)
	if err != nil {
		return nil, err
	}
	defer r.Close() // nolint: errcheck
	b := r.Bytes()
	return b, errors.Wrapf(r.Error, "GET %s returned invalid body", url)
}
