package restapi

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki0xff/frametrace/metrics"
	"github.com/yuuki0xff/frametrace/tracer/capture"
	"github.com/yuuki0xff/frametrace/tracer/coordinator"
	"github.com/yuuki0xff/frametrace/tracer/frame"
	"github.com/yuuki0xff/frametrace/tracer/mockgl"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"github.com/yuuki0xff/frametrace/tracer/tree"
)

const (
	testIndex      = "<html>tracing</html>"
	defaultTimeout = 5 * time.Second
)

type testServer struct {
	srv *httptest.Server
	f   *frame.Frame
	gl  *mockgl.Renderer
	rv  *capture.Rendezvous
	api ClientWithCtx
}

func newTestServer(t *testing.T) *testServer {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := &stream.Stream{}
	gl := mockgl.New(s, nil)
	rv := capture.New(capture.Options{Stream: s, Deleter: gl, Metrics: m})
	f := &frame.Frame{}
	rv.Attach(f)

	router := NewRouter(RouterArgs{
		Coordinator: coordinator.New(coordinator.Options{
			Rendezvous: rv,
			Index:      []byte(testIndex),
			Metrics:    m,
		}),
		Gatherer: reg,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c := &Client{BaseUrl: srv.URL + "/"}
	require.NoError(t, c.Init())
	return &testServer{
		srv: srv,
		f:   f,
		gl:  gl,
		rv:  rv,
		api: c.WithCtx(context.Background()),
	}
}

func (ts *testServer) get(t *testing.T, path string) (int, string) {
	res, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	defer res.Body.Close() // nolint: errcheck
	b, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(b)
}

func TestRouter_index(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)
	for _, path := range []string{"/tracing", "/tracing/", "/tracing/index.html", "/"} {
		status, body := ts.get(t, path)
		a.Equal(http.StatusOK, status, path)
		a.Equal(testIndex, body, path)
	}

	status, _ := ts.get(t, "/tracing/does/not/exist")
	a.Equal(http.StatusNotFound, status)

	b, err := ts.api.Index()
	a.NoError(err)
	a.Equal(testIndex, string(b))
}

func TestRouter_methodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Post(ts.srv.URL+"/tracing/clear", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	res.Body.Close() // nolint: errcheck
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestClient_TraceNextFrame(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)
	require.NoError(t, ts.f.Render(nil))
	require.NoError(t, ts.f.Render(nil))

	doc, err := ts.api.TraceNextFrame(TraceOptions{Nonblocking: true})
	a.NoError(err)
	a.Equal(coordinator.Document(capture.Snapshot{Frame: 2}), doc)

	// 前回のリクエストのキャプチャが完了していない
	_, err = ts.api.TraceNextFrame(TraceOptions{Nonblocking: true})
	a.Equal(ErrConflict, errors.Cause(err))

	require.NoError(t, ts.f.Render(func(uint64) { ts.gl.DrawScene() }))
	traces, err := ts.api.Traces(TraceOptions{Nonblocking: true})
	a.NoError(err)
	require.Len(t, traces, 1)
	a.Equal(uint64(2), traces[0].Frame)
	a.Len(traces[0].Tree, 1)

	a.NoError(ts.api.Clear())
	a.Empty(ts.rv.Snapshot().Captures)
}

func TestClient_blocking(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// 描画ループ
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.f.Render(func(uint64) { ts.gl.DrawScene() }) // nolint: errcheck
			}
		}
	}()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer reqCancel()
	traces, err := ts.api.Client.WithCtx(reqCtx).Traces(TraceOptions{})
	a.NoError(err)
	require.Len(t, traces, 1)
	label, ok := traces[0].Tree[0].(*tree.Label)
	require.True(t, ok)
	a.Equal("Draw scene", label.Text)
}

func TestClient_deleteResources(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)
	require.NoError(t, ts.f.Render(func(uint64) { ts.gl.DrawScene() }))
	ts.gl.ResetCalls()

	_, err := ts.api.TraceNextFrame(TraceOptions{
		Nonblocking: true,
		Delete:      []string{reaper.Samplers.String(), reaper.ShaderPrograms.String()},
	})
	a.NoError(err)
	require.NoError(t, ts.f.Render(nil))
	a.Equal([]string{"DeleteSamplers", "DeleteProgram"}, ts.gl.Calls())

	_, err = ts.api.TraceNextFrame(TraceOptions{Nonblocking: true, Delete: []string{"Meshes"}})
	a.Equal(ErrBadRequest, errors.Cause(err))
	a.Contains(err.Error(), "Meshes")
}

func TestClient_TraceSVG(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)
	b, err := ts.api.TraceSVG()
	a.NoError(err)
	a.Contains(string(b), "<svg")
}

func TestRouter_metrics(t *testing.T) {
	a := assert.New(t)
	ts := newTestServer(t)
	_, err := ts.api.TraceNextFrame(TraceOptions{Nonblocking: true})
	a.NoError(err)
	a.NoError(ts.api.Clear())

	status, body := ts.get(t, MetricsPath)
	a.Equal(http.StatusOK, status)
	a.Contains(body, `frametrace_arms_total{result="accepted"} 1`)
	a.Contains(body, `frametrace_clears_total 1`)
	a.Contains(body, `frametrace_http_requests_total{action="clear",status="200"} 1`)
}

func TestClient_connectionRefused(t *testing.T) {
	c := &Client{BaseUrl: "http://127.0.0.1:1"}
	require.NoError(t, c.Init())
	err := c.WithCtx(context.Background()).Clear()
	assert.Error(t, err)
}

func TestTraceOptions_Params(t *testing.T) {
	a := assert.New(t)
	a.Empty(TraceOptions{}.Params())
	a.Equal(map[string]string{
		coordinator.ParamNonblocking:       "",
		coordinator.ParamResourcesToDelete: "Samplers,Textures",
	}, TraceOptions{Nonblocking: true, Delete: []string{"Samplers", "Textures"}}.Params())
}
