package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/yuuki0xff/frametrace/logging"
	"go.uber.org/zap"
)

// ShutdownTimeout is the time given to in-flight requests on Stop.
const ShutdownTimeout = 3 * time.Second

type HttpServer struct {
	server *http.Server
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	errch  chan error
}

func NewHttpServer(addr string, handler http.Handler, logger *zap.Logger) *HttpServer {
	ctx, cancel := context.WithCancel(context.Background())

	srv := &HttpServer{
		logger: logging.OrNop(logger).Named("httpserver"),
		ctx:    ctx,
		cancel: cancel,
		errch:  make(chan error, 1),
	}
	srv.server = &http.Server{
		Addr:    addr,
		Handler: handler,
		// Stop()を呼び出すと、待機中のリクエストのcontextもキャンセルされる。
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// HTTPサーバを起動する。
// この関数の実行終了後、Addr()から実際にlistenされたアドレスとポート番号を取得出来る。
func (srv *HttpServer) Start() error {
	addr := srv.server.Addr
	if addr == "" {
		// find available port, and listen
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	srv.server.Addr = listener.Addr().String()
	srv.logger.Info("listening", zap.String("addr", srv.server.Addr))

	go func() {
		defer listener.Close() // nolint
		srv.errch <- srv.server.Serve(listener)
	}()
	return nil
}

// HTTPサーバが終了するまで待機する。
func (srv *HttpServer) Wait() error {
	err := <-srv.errch
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Run starts the server and blocks until ctx is done or the server fails.
func (srv *HttpServer) Run(ctx context.Context) error {
	if err := srv.Start(); err != nil {
		return err
	}
	return srv.WaitContext(ctx)
}

// WaitContext waits for the server like Wait, but stops it when ctx is done.
func (srv *HttpServer) WaitContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		srv.Stop()
		return srv.Wait()
	case err := <-srv.errch:
		srv.cancel()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// HTTPサーバを停止する。
// 待機中のblockingなリクエストは、contextがキャンセルされるので直ちに終了する。
func (srv *HttpServer) Stop() {
	srv.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.server.Shutdown(ctx); err != nil {
		srv.logger.Warn("shutdown", zap.Error(err))
		srv.server.Close() // nolint: errcheck
	}
}

func (srv *HttpServer) Addr() string {
	return srv.server.Addr
}

// Url returns the base URL of the server.
func (srv *HttpServer) Url() string {
	return "http://" + srv.Addr()
}
