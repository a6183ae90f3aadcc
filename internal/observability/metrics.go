// Package observability mirrors the statistics module's counters as
// Prometheus metrics and serves them, alongside a bare health check, on an
// optional operator-facing HTTP listener. None of this is on the image
// protocol's wire path; it exists purely so operators can scrape the same
// numbers the SIGHUP reporter prints without sending a signal.
package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	currentClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceguard",
		Name:      "current_clients",
		Help:      "Connections presently open.",
	})
	completedClients = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "faceguard",
		Name:      "completed_clients_total",
		Help:      "Connections that have closed.",
	})
	faceDetectOK = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "faceguard",
		Name:      "face_detect_ok_total",
		Help:      "Successful detect responses.",
	})
	faceReplaceOK = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "faceguard",
		Name:      "face_replace_ok_total",
		Help:      "Successful replace responses.",
	})
	malformedRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "faceguard",
		Name:      "malformed_requests_total",
		Help:      "Connections rejected for a bad magic prefix.",
	})
)

// RegisterMetrics registers every collector exactly once per process.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(currentClients, completedClients, faceDetectOK, faceReplaceOK, malformedRequests)
	})
}

func SetCurrentClients(n uint64) {
	RegisterMetrics()
	currentClients.Set(float64(n))
}

func IncCompletedClients() {
	RegisterMetrics()
	completedClients.Inc()
}

func IncFaceDetectOK() {
	RegisterMetrics()
	faceDetectOK.Inc()
}

func IncFaceReplaceOK() {
	RegisterMetrics()
	faceReplaceOK.Inc()
}

func IncMalformedRequests() {
	RegisterMetrics()
	malformedRequests.Inc()
}

// Server is the optional operator HTTP listener exposing /health and
// /metrics. A zero-value addr means "disabled"; ServeBackground is then a
// no-op.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer builds a metrics/health server bound to addr ("" disables it).
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// ServeBackground starts the listener in its own goroutine if addr is
// non-empty, returning a stop function that is always safe to call.
func (s *Server) ServeBackground() (stop func(), err error) {
	if s.addr == "" {
		return func() {}, nil
	}
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return func() {}, err
	case <-time.After(50 * time.Millisecond):
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(ctx)
	}, nil
}
