package httpserver

import (
	"context"
	"io/ioutil"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpServer(t *testing.T) {
	a := assert.New(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello")) // nolint: errcheck
	})
	srv := NewHttpServer("", mux, nil)
	require.NoError(t, srv.Start())
	a.NotEqual("", srv.Addr())

	res, err := http.Get(srv.Url() + "/hello")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(res.Body)
	res.Body.Close() // nolint: errcheck
	a.NoError(err)
	a.Equal("hello", string(body))

	srv.Stop()
	a.NoError(srv.Wait())
}

func TestHttpServer_RunCancelsRequests(t *testing.T) {
	a := assert.New(t)
	mux := http.NewServeMux()
	started := make(chan struct{})
	mux.HandleFunc("/wait", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := NewHttpServer("127.0.0.1:0", mux, nil)

	require.NoError(t, srv.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.WaitContext(ctx) }()

	go http.Get(srv.Url() + "/wait") // nolint: errcheck
	<-started
	cancel()

	select {
	case err := <-done:
		a.NoError(err)
	case <-time.After(ShutdownTimeout + 5*time.Second):
		t.Fatal("timeout")
	}
}
