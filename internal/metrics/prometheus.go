package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Prometheus implements core.Metrics using the Prometheus client. The HTTP
// /metrics exposition endpoint itself is an external collaborator (out of
// scope, spec.md §1); this type only maintains the collector state a caller
// can mount behind their own promhttp.Handler.
type Prometheus struct {
	filesScanned  *prometheus.CounterVec
	dirsScanned   *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	gradeDecisions *prometheus.CounterVec
	bytesEligible prometheus.Gauge
	filesEligible prometheus.Gauge
	filesDeleted  *prometheus.CounterVec
	dirsDeleted   *prometheus.CounterVec
	bytesFreed    prometheus.Counter
	deleteErrors  *prometheus.CounterVec
}

// NewPrometheus creates a new Prometheus metrics collector. All metrics are
// registered with reg; if reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Prometheus{
		filesScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "scanner",
			Name:      "files_scanned_total",
			Help:      "Total number of files scanned",
		}, []string{"root"}),

		dirsScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "scanner",
			Name:      "dirs_scanned_total",
			Help:      "Total number of directories scanned",
		}, []string{"root"}),

		scanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cleanupengine",
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning roots",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"root"}),

		gradeDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "classifier",
			Name:      "grade_decisions_total",
			Help:      "Total safety-grade decisions by grade and category",
		}, []string{"grade", "category"}),

		bytesEligible: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "bytes_eligible",
			Help:      "Total bytes eligible for deletion in the current request",
		}),

		filesEligible: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "files_eligible",
			Help:      "Total files eligible for deletion in the current request",
		}),

		filesDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "files_deleted_total",
			Help:      "Total number of files deleted",
		}, []string{"root"}),

		dirsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "dirs_deleted_total",
			Help:      "Total number of directories deleted",
		}, []string{"root"}),

		bytesFreed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "bytes_freed_total",
			Help:      "Total bytes freed by deletions",
		}),

		deleteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanupengine",
			Subsystem: "executor",
			Name:      "delete_errors_total",
			Help:      "Total delete errors by reason",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) IncFilesScanned(root string) { p.filesScanned.WithLabelValues(root).Inc() }
func (p *Prometheus) IncDirsScanned(root string)  { p.dirsScanned.WithLabelValues(root).Inc() }

func (p *Prometheus) ObserveScanDuration(root string, d time.Duration) {
	p.scanDuration.WithLabelValues(root).Observe(d.Seconds())
}

func (p *Prometheus) IncGradeDecision(grade core.SafetyGrade, category core.Category) {
	p.gradeDecisions.WithLabelValues(grade.String(), string(category)).Inc()
}

func (p *Prometheus) SetBytesEligible(bytes int64) { p.bytesEligible.Set(float64(bytes)) }
func (p *Prometheus) SetFilesEligible(count int)   { p.filesEligible.Set(float64(count)) }

func (p *Prometheus) IncFilesDeleted(root string) { p.filesDeleted.WithLabelValues(root).Inc() }
func (p *Prometheus) IncDirsDeleted(root string)  { p.dirsDeleted.WithLabelValues(root).Inc() }
func (p *Prometheus) AddBytesFreed(bytes int64)   { p.bytesFreed.Add(float64(bytes)) }

func (p *Prometheus) IncDeleteErrors(reason string) {
	p.deleteErrors.WithLabelValues(reason).Inc()
}

// Ensure Prometheus implements core.Metrics.
var _ core.Metrics = (*Prometheus)(nil)
