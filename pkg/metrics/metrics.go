package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	vsphereInspector = "vsphere_inspector"

	// vSphere API metrics
	vsphereCallsTotal = "vsphere_calls_total"

	// Cache metrics
	cacheRefreshesTotal = "cache_refreshes_total"
	cacheLookupsTotal   = "cache_lookups_total"

	// Poller metrics
	vmStatValue     = "vm_stat_value"
	pollErrorsTotal = "poll_errors_total"

	// Labels
	operationLabel = "operation"
	resultLabel    = "result"
	cacheLabel     = "cache"
	vmLabel        = "vm"
	counterLabel   = "counter"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

var vsphereCallsTotalLabels = []string{
	operationLabel,
	resultLabel,
}

var cacheRefreshesTotalLabels = []string{
	cacheLabel,
}

var cacheLookupsTotalLabels = []string{
	cacheLabel,
	resultLabel,
}

var vmStatLabels = []string{
	vmLabel,
	counterLabel,
}

/**
* Metrics definition
**/
var vsphereCallsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vsphereInspector,
		Name:      vsphereCallsTotal,
		Help:      "number of calls issued to the vSphere API",
	},
	vsphereCallsTotalLabels,
)

var cacheRefreshesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vsphereInspector,
		Name:      cacheRefreshesTotal,
		Help:      "number of full cache populations",
	},
	cacheRefreshesTotalLabels,
)

var cacheLookupsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vsphereInspector,
		Name:      cacheLookupsTotal,
		Help:      "number of cache lookups partitioned by hit or miss",
	},
	cacheLookupsTotalLabels,
)

var vmStatValueMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: vsphereInspector,
		Name:      vmStatValue,
		Help:      "last polled real-time value of a performance counter for a vm",
	},
	vmStatLabels,
)

var pollErrorsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: vsphereInspector,
		Name:      pollErrorsTotal,
		Help:      "number of failed stat polls",
	},
	vmStatLabels,
)

func IncreaseVSphereCallsTotalMetric(operation, result string) {
	labels := prometheus.Labels{
		operationLabel: operation,
		resultLabel:    result,
	}
	vsphereCallsTotalMetric.With(labels).Inc()
}

func IncreaseCacheRefreshesTotalMetric(cache string) {
	labels := prometheus.Labels{
		cacheLabel: cache,
	}
	cacheRefreshesTotalMetric.With(labels).Inc()
}

func IncreaseCacheLookupsTotalMetric(cache, result string) {
	labels := prometheus.Labels{
		cacheLabel:  cache,
		resultLabel: result,
	}
	cacheLookupsTotalMetric.With(labels).Inc()
}

func UpdateVMStatValueMetric(vm, counter string, value float64) {
	labels := prometheus.Labels{
		vmLabel:      vm,
		counterLabel: counter,
	}
	vmStatValueMetric.With(labels).Set(value)
}

func IncreasePollErrorsTotalMetric(vm, counter string) {
	labels := prometheus.Labels{
		vmLabel:      vm,
		counterLabel: counter,
	}
	pollErrorsTotalMetric.With(labels).Inc()
}

// Collectors returns every collector of the package, for callers that use
// their own registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		vsphereCallsTotalMetric,
		cacheRefreshesTotalMetric,
		cacheLookupsTotalMetric,
		vmStatValueMetric,
		pollErrorsTotalMetric,
	}
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(Collectors()...)
}
