package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-verbench/types"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const (
	MetricsNamespace = "verbench"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	registry = opmetrics.NewRegistry()
	factory  = promauto.With(registry)

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	invocationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "invocations_total",
		Help:      "Count of verifier invocations by outcome",
	}, []string{
		"suite",
		"tag",
		"outcome",
	})

	invocationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "invocation_duration_seconds",
		Help:      "Wall time of verifier invocations",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600, 7200},
	}, []string{
		"suite",
		"outcome",
	})

	skippedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "skipped_total",
		Help:      "Count of inputs skipped because a result was already recorded",
	}, []string{
		"suite",
		"tag",
	})

	storeWritesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "store_writes_total",
		Help:      "Count of full result store rewrites",
	})

	storeBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "store_bytes",
		Help:      "Size of the last written result store",
	})

	tableRows = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "table_rows",
		Help:      "Number of comparison rows in the last rendered table",
	}, []string{
		"table",
	})
)

// Registry returns the registry holding all op-verbench collectors.
func Registry() *prometheus.Registry {
	return registry
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordInvocation(suite string, tag string, outcome types.Outcome, elapsed time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "invocations_total",
			"suite", suite,
			"tag", tag,
			"outcome", outcome)
	}
	invocationsTotal.WithLabelValues(suite, tag, outcome.String()).Inc()
	invocationDuration.WithLabelValues(suite, outcome.String()).Observe(elapsed.Seconds())
}

func RecordSkip(suite string, tag string) {
	skippedTotal.WithLabelValues(suite, tag).Inc()
}

func RecordStoreWrite(size int) {
	storeWritesTotal.Inc()
	storeBytes.Set(float64(size))
}

func RecordTableRendered(table string, rows int) {
	tableRows.WithLabelValues(table).Set(float64(rows))
}
