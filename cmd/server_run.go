// Copyright © 2017 yuuki0xff <yuuki0xff@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/yuuki0xff/frametrace/config"
	"github.com/yuuki0xff/frametrace/httpserver"
	"github.com/yuuki0xff/frametrace/logging"
	"github.com/yuuki0xff/frametrace/metrics"
	"github.com/yuuki0xff/frametrace/static"
	"github.com/yuuki0xff/frametrace/tracer/capture"
	"github.com/yuuki0xff/frametrace/tracer/coordinator"
	"github.com/yuuki0xff/frametrace/tracer/frame"
	"github.com/yuuki0xff/frametrace/tracer/mockgl"
	"github.com/yuuki0xff/frametrace/tracer/render"
	"github.com/yuuki0xff/frametrace/tracer/restapi"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// serverRunCmd represents the run command
var serverRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tracing server with a mock render loop",
	Args:  cobra.NoArgs,
	RunE: wrap(func(opt *handlerOpt) error {
		flags := opt.Cmd.Flags()
		v := opt.Conf.Viper()
		// フラグが指定されたときだけ、設定ファイルと環境変数の値を上書きする。
		for key, name := range map[string]string{
			"addr":           "listen",
			"frame_interval": "frame-interval",
			"history_limit":  "history-limit",
			"log_level":      "log-level",
			"log_dev":        "log-dev",
		} {
			if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
				return err
			}
		}
		if err := opt.Conf.Reload(); err != nil {
			opt.ErrLog.Println(err)
			return errInvalidArgs
		}

		force, _ := flags.GetBool("force")
		openBrowser, _ := flags.GetBool("open")
		return runServerRun(opt, force, openBrowser)
	}),
}

type tracingServer struct {
	Logger     *zap.Logger
	Frame      *frame.Frame
	Renderer   *mockgl.Renderer
	Rendezvous *capture.Rendezvous
	Http       *httpserver.HttpServer
	Interval   time.Duration
}

// newTracingServer wires the render loop and the HTTP server.
func newTracingServer(s config.Settings, logger *zap.Logger) *tracingServer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	st := &stream.Stream{}
	gl := mockgl.New(st, logger.Named("mockgl"))
	gl.EnableErrorChecking(true)
	rv := capture.New(capture.Options{
		Stream:       st,
		Deleter:      gl,
		Logger:       logger.Named("capture"),
		Metrics:      m,
		HistoryLimit: s.HistoryLimit,
	})
	f := &frame.Frame{}
	rv.Attach(f)

	co := coordinator.New(coordinator.Options{
		Rendezvous: rv,
		Index:      static.Index(),
		Logger:     logger.Named("coordinator"),
		Metrics:    m,
		SVGColors:  render.ColorRuleNames[s.SVGColors],
	})
	router := restapi.NewRouter(restapi.RouterArgs{
		Coordinator: co,
		Logger:      logger,
		Gatherer:    reg,
	})
	return &tracingServer{
		Logger:     logger,
		Frame:      f,
		Renderer:   gl,
		Rendezvous: rv,
		Http:       httpserver.NewHttpServer(s.Addr, router, logger),
		Interval:   s.FrameInterval,
	}
}

// Run starts the HTTP server. ready is called after the server started listening.
// It returns when ctx is done or the server or the render loop fails.
func (ts *tracingServer) Run(ctx context.Context, ready func()) error {
	if err := ts.Http.Start(); err != nil {
		return err
	}
	if ready != nil {
		ready()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := ts.Frame.Run(ctx, ts.Interval, func(uint64) {
			ts.Renderer.DrawScene()
		})
		return errors.Wrap(err, "render loop")
	})
	g.Go(func() error {
		return ts.Http.WaitContext(ctx)
	})
	return g.Wait()
}

func (ts *tracingServer) PageUrl() string {
	return ts.Http.Url() + restapi.TracingPath + "/"
}

func runServerRun(opt *handlerOpt, force, openBrowser bool) error {
	conf := opt.Conf
	if len(conf.Servers.ApiServer) > 0 && !force {
		// server SHOULD one instance.
		opt.ErrLog.Println("tracing server is already running. use --force if it is not.")
		return errGeneral
	}

	logger, err := logging.New(conf.Settings.Logging())
	if err != nil {
		opt.ErrLog.Println(err)
		return errInvalidArgs
	}
	defer logger.Sync() // nolint: errcheck

	ts := newTracingServer(conf.Settings, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer stop()

	err = ts.Run(ctx, func() {
		// add servers to config, and save
		conf.Servers = *config.NewServers()
		conf.Servers.ApiServer[1] = &config.ApiServerConfig{
			ServerID: 1,
			Version:  1,
			Addr:     ts.Http.Url(),
			PID:      os.Getpid(),
			Started:  time.Now(),
		}
		if err := conf.Save(); err != nil {
			opt.ErrLog.Println("cannot write to the config file:", err)
		}

		url := ts.PageUrl()
		fmt.Fprintln(opt.Stdout, "Tracing page:", url)
		if openBrowser {
			if err := open.Start(url); err != nil {
				logger.Warn("failed to open a browser", zap.Error(err))
			}
		}
	})

	// remove servers from config
	conf.Servers = *config.NewServers()
	if err := conf.Save(); err != nil {
		opt.ErrLog.Println("cannot write to the config file:", err)
	}
	return err
}

func init() {
	serverCmd.AddCommand(serverRunCmd)

	d := config.DefaultSettings()
	serverRunCmd.Flags().StringP("listen", "l", d.Addr, "Address and port for the tracing server")
	serverRunCmd.Flags().Duration("frame-interval", d.FrameInterval, "Interval of the mock render loop")
	serverRunCmd.Flags().Int("history-limit", d.HistoryLimit, "Maximum number of traces kept until clear (0 means unlimited)")
	serverRunCmd.Flags().String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	serverRunCmd.Flags().Bool("log-dev", d.LogDev, "Use the human friendly log format")
	serverRunCmd.Flags().Bool("force", false, "Start even if the config dir lists a running server")
	serverRunCmd.Flags().Bool("open", false, "Open the tracing page in a browser")
}
