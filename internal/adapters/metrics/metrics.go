// Package metrics exports run metrics as a Prometheus textfile.
package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.MetricsWriter = (*Textfile)(nil)

// Textfile implements ports.MetricsWriter for the node exporter textfile collector.
type Textfile struct{}

// NewTextfile creates a new Textfile writer.
func NewTextfile() *Textfile {
	return &Textfile{}
}

// WriteMetrics replaces .sift/metrics.prom with the metrics of one run.
func (w *Textfile) WriteMetrics(root string, report domain.AuditReport, info domain.RunInfo) error {
	if err := os.MkdirAll(domain.SiftPath(root), domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrMetricsWriteFailed.Error())
	}

	path := domain.MetricsPath(root)
	if err := prometheus.WriteToTextfile(path, Collect(report, info)); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrMetricsWriteFailed.Error()), "path", path)
	}
	return nil
}

// Collect builds a registry holding the metrics of one run.
func Collect(report domain.AuditReport, info domain.RunInfo) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	runDuration := factory.NewGauge(prometheus.GaugeOpts{
		Name: "sift_run_duration_seconds",
		Help: "Wall time of the last audit run",
	})
	runFinished := factory.NewGauge(prometheus.GaugeOpts{
		Name: "sift_run_finished_timestamp_seconds",
		Help: "Unix time the last audit run finished",
	})
	runTier := factory.NewGauge(prometheus.GaugeOpts{
		Name: "sift_run_tier",
		Help: "Highest tier requested by the last audit run",
	})
	runStatus := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_run_status",
		Help: "Status of the last audit run, 1 for the current status",
	}, []string{"status"})
	failures := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_failures",
		Help: "Failures of the last audit run by kind",
	}, []string{"kind"})
	toolDuration := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_tool_duration_seconds",
		Help: "Wall time of each tool in the last audit run",
	}, []string{"tool"})
	toolStatus := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_tool_status",
		Help: "Status of each tool in the last audit run, 1 for the current status",
	}, []string{"tool", "status"})
	cacheHits := factory.NewCounter(prometheus.CounterOpts{
		Name: "sift_cache_hits_total",
		Help: "Tools served from cache in the last audit run",
	})
	coveragePercent := factory.NewGauge(prometheus.GaugeOpts{
		Name: "sift_coverage_percent",
		Help: "Merged line coverage",
	})
	domainPercent := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_coverage_domain_percent",
		Help: "Line coverage per domain",
	}, []string{"domain"})
	domainState := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sift_coverage_domain_state",
		Help: "Origin of each domain's coverage fragment, 1 for the current state",
	}, []string{"domain", "state"})

	if !info.FinishedAt.IsZero() {
		runDuration.Set(info.FinishedAt.Sub(info.StartedAt).Seconds())
		runFinished.Set(float64(info.FinishedAt.Unix()))
	}
	runTier.Set(float64(report.Tier))
	runStatus.WithLabelValues(string(report.Status)).Set(1)

	failures.WithLabelValues(string(domain.FailureFindings)).Set(0)
	failures.WithLabelValues(string(domain.FailureCrash)).Set(0)
	for _, f := range report.Failures {
		failures.WithLabelValues(string(f.Kind)).Inc()
	}

	for _, t := range info.Tools {
		toolDuration.WithLabelValues(t.Tool).Set(float64(t.DurationMs) / 1000)
		toolStatus.WithLabelValues(t.Tool, string(t.Status)).Set(1)
		if t.Cached {
			cacheHits.Inc()
		}
	}

	if report.Coverage != nil {
		coveragePercent.Set(report.Coverage.Percent)
		for _, d := range report.Coverage.Domains {
			domainPercent.WithLabelValues(d.Domain).Set(d.Percent)
		}
	}
	for name, state := range info.Coverage {
		domainState.WithLabelValues(name, string(state)).Set(1)
	}

	return reg
}
