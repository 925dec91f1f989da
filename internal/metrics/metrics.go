package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmkit_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crmkit_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	installationOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmkit_installation_operations_total",
		Help: "Count of install/uninstall operations by operation and result",
	}, []string{"operation", "result"})

	installationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crmkit_installation_duration_seconds",
		Help:    "Duration of install/uninstall operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	stampedEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmkit_stamped_entities_total",
		Help: "Live schema entities created from blueprints",
	}, []string{"kind"})

	removedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crmkit_uninstall_removed_records_total",
		Help: "Live records deleted by forced module uninstalls",
	})
)

// Operation names used as label values.
const (
	OpInstallTemplate = "install_template"
	OpInstallModule   = "install_module"
	OpUninstallModule = "uninstall_module"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveOperation records the result and duration of an installation operation.
func ObserveOperation(operation, result string, duration time.Duration) {
	installationOperations.WithLabelValues(operation, result).Inc()
	installationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddStamped counts stamped object types, fields and associations.
func AddStamped(objectTypes, fields, associations int) {
	stampedEntities.WithLabelValues("object_type").Add(float64(objectTypes))
	stampedEntities.WithLabelValues("field").Add(float64(fields))
	stampedEntities.WithLabelValues("association_type").Add(float64(associations))
}

// AddRemovedRecords counts records deleted by a forced uninstall.
func AddRemovedRecords(n int64) {
	if n > 0 {
		removedRecords.Add(float64(n))
	}
}
