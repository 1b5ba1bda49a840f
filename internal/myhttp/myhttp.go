package myhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

func newServerMux(logger *slog.Logger, requestDuration metric.Int64Histogram) *router {
	return &router{
		ServeMux:        http.NewServeMux(),
		logger:          logger,
		requestDuration: requestDuration,
	}
}

var NewServerMux = newServerMux
