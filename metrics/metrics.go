package metrics

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/types"
)

const metricsNamespace = "tsoracle"

type Metrics struct {
	servicesCreated     *prometheus.CounterVec
	timestampsHandedOut *prometheus.CounterVec
	lastHandedOut       *prometheus.GaugeVec
	upperLimit          *prometheus.GaugeVec
	upperLimitStores    *prometheus.CounterVec
	allocationFailures  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		servicesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "services_created_total",
			Help:      "Persistent timestamp service instances created.",
		}, []string{"namespace"}),
		timestampsHandedOut: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "timestamps_handed_out_total",
			Help:      "Timestamps handed out to callers.",
		}, []string{"namespace"}),
		lastHandedOut: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_handed_out_timestamp",
			Help:      "Highest timestamp handed out.",
		}, []string{"namespace"}),
		upperLimit: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "upper_limit",
			Help:      "Persisted timestamp upper limit.",
		}, []string{"namespace"}),
		upperLimitStores: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upper_limit_stores_total",
			Help:      "Writes of the upper limit to the bound store.",
		}, []string{"namespace"}),
		allocationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "allocation_failures_total",
			Help:      "Failed attempts to raise the upper limit, by error code.",
		}, []string{"namespace", "code"}),
	}
}

// Observer returns an oracle.Observer recording the events of one namespace.
func (m *Metrics) Observer(namespace string) oracle.Observer {
	return &namespaceObserver{m: m, namespace: namespace}
}

type namespaceObserver struct {
	m         *Metrics
	namespace string
}

func (o *namespaceObserver) ServiceCreated(string) {
	o.m.servicesCreated.WithLabelValues(o.namespace).Inc()
}

func (o *namespaceObserver) HandedOut(r types.TimestampRange) {
	o.m.timestampsHandedOut.WithLabelValues(o.namespace).Add(float64(r.Size()))
	o.m.lastHandedOut.WithLabelValues(o.namespace).Set(float64(r.Upper))
}

func (o *namespaceObserver) WillStoreUpperLimit(int64) {}

func (o *namespaceObserver) DidStoreUpperLimit(limit int64) {
	o.m.upperLimitStores.WithLabelValues(o.namespace).Inc()
	o.m.upperLimit.WithLabelValues(o.namespace).Set(float64(limit))
}

func (o *namespaceObserver) AllocationFailed(err error) {
	o.m.allocationFailures.WithLabelValues(o.namespace, strconv.Itoa(errors.GetErrorCode(err))).Inc()
}

type Server struct {
	httpServer *http.Server
	Done       chan struct{}
}

func NewServer(port int, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		httpServer: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux},
		Done:       make(chan struct{}),
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		glog.Errorf("metrics server failed to listen: %v", err)
		return err
	}
	go func() {
		defer close(s.Done)

		if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			glog.Errorf("metrics serve failed: %v", err)
		}
	}()
	return nil
}

func (s *Server) Stop() {
	_ = s.httpServer.Close()
	<-s.Done
}
