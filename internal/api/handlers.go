package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Version = "v0.1.0"

type VersionHandler struct {
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

func (h *VersionHandler) Pattern() string {
	return "/version"
}

func (h *VersionHandler) Method() string {
	return http.MethodGet
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(Version))
}

// MetricsRoute exposes the prometheus registry the collectors were registered with.
type MetricsRoute struct {
	handler http.Handler
}

func NewMetricsRoute(gatherer prometheus.Gatherer) *MetricsRoute {
	return &MetricsRoute{
		handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

func (h *MetricsRoute) Pattern() string {
	return "/metrics"
}

func (h *MetricsRoute) Method() string {
	return http.MethodGet
}

func (h *MetricsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
