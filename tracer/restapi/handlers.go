package restapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuuki0xff/frametrace/logging"
	"github.com/yuuki0xff/frametrace/tracer/coordinator"
	"go.uber.org/zap"
)

const (
	TracingPath = "/tracing"
	MetricsPath = "/metrics"
)

type RouterArgs struct {
	Coordinator *coordinator.Coordinator
	Logger      *zap.Logger
	// Gathererがnilなら/metricsを提供しない。
	Gatherer prometheus.Gatherer
}

// TracingAPI binds the coordinator to HTTP.
type TracingAPI struct {
	RouterArgs
	Logger *zap.Logger
}

func NewRouter(args RouterArgs) *mux.Router {
	router := mux.NewRouter()

	api := TracingAPI{
		RouterArgs: args,
		Logger:     logging.OrNop(args.Logger).Named("restapi"),
	}
	api.SetHandlers(router)
	return router
}

func (api TracingAPI) SetHandlers(router *mux.Router) {
	router.Use(api.logRequest)
	router.Handle("/", http.RedirectHandler(TracingPath+"/", http.StatusFound)).Methods(http.MethodGet)
	router.HandleFunc(TracingPath, api.action).Methods(http.MethodGet)
	router.HandleFunc(TracingPath+"/{action:.*}", api.action).Methods(http.MethodGet)
	if api.Gatherer != nil {
		router.Handle(MetricsPath, promhttp.HandlerFor(api.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

func (api TracingAPI) action(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	// blockingなリクエストは、クライアントが切断するとcontextがキャンセルされる。
	res := api.Coordinator.Handle(r.Context(), action, r.URL.Query())
	api.write(w, res)
}

func (api TracingAPI) write(w http.ResponseWriter, res coordinator.Response) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(res.Status)
	if _, err := w.Write(res.Body); err != nil {
		api.Logger.Debug("failed to write response", zap.Error(err))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (api TracingAPI) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		api.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
