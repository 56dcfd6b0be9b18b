// Package airtouchtools provides helpers to instrument the airtouch client
// with Prometheus request metrics.
package airtouchtools

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

// NewInstrumentedClient creates an airtouch client whose HTTP calls are
// measured by m
func NewInstrumentedClient(host string, port int, m metrics.RequestMetrics, options ...airtouch.Option) *airtouch.Client {
	httpClient := http.Client{Transport: newInstrumentedRoundTripper(http.DefaultTransport, m)}
	options = append(options, airtouch.WithHTTPClient(&httpClient))
	return airtouch.New(host, port, options...)
}

func newInstrumentedRoundTripper(rt http.RoundTripper, m metrics.RequestMetrics) http.RoundTripper {
	return roundtripper.New(
		roundtripper.WithRequestMetrics(m),
		roundtripper.WithRoundTripper(rt),
	)
}

// NewCallMetrics creates the RequestMetrics for the airtouch client. Zone and
// command arguments are stripped from the path label to keep the cardinality
// bounded.
func NewCallMetrics(namespace, subsystem string, labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   namespace,
		Subsystem:   subsystem,
		ConstLabels: labels,
		LabelValues: func(request *http.Request, statusCode int) (string, string, string) {
			const apiPath = "/api/aircon"
			path := request.URL.Path
			if strings.HasPrefix(path, apiPath+"/") {
				next := path[len(apiPath)+1:]
				if i := strings.IndexByte(next, '/'); i != -1 {
					next = next[:i]
				}
				path = apiPath + "/" + next
			}
			return request.Method, path, strconv.Itoa(statusCode)
		},
	})
}
