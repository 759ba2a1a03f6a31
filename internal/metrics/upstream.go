package metrics

import "time"

// ObserveUpstream records the outcome of one outbound API call.
func ObserveUpstream(service, operation string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(service, operation, status).Inc()
	UpstreamRequestDuration.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}
