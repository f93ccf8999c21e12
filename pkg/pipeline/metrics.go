// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for the pipeline subsystem.
type metricsPipeline struct {
	once sync.Once

	// Jobs
	jobsClaimed   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsRequeued  prometheus.Counter
	cacheHits     prometheus.Counter

	// Files
	filesDiscovered prometheus.Counter
	filesParsed     prometheus.Counter
	parseErrors     prometheus.Counter

	// Summaries
	summariesLLM      prometheus.Counter
	summariesFallback prometheus.Counter

	// Artifacts
	artifactsWritten prometheus.Counter
	artifactsReused  prometheus.Counter

	// Durations
	phaseDuration *prometheus.HistogramVec
	totalDuration prometheus.Histogram
}

var pipeMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.jobsClaimed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_jobs_claimed_total", Help: "Jobs reclamados por el worker"})
		m.jobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_jobs_completed_total", Help: "Jobs completados"})
		m.jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_jobs_failed_total", Help: "Jobs terminados en error"})
		m.jobsRequeued = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_jobs_requeued_total", Help: "Jobs reencolados con backoff"})
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_cache_hits_total", Help: "Ingestas resueltas por snapshot ya completado"})

		m.filesDiscovered = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_files_discovered_total", Help: "Archivos descubiertos"})
		m.filesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_files_parsed_total", Help: "Archivos parseados"})
		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_parse_errors_total", Help: "Archivos que fallaron al parsear"})

		m.summariesLLM = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_summaries_llm_total", Help: "Resúmenes generados por LLM"})
		m.summariesFallback = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_summaries_fallback_total", Help: "Resúmenes por fallback determinista"})

		m.artifactsWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_artifacts_written_total", Help: "Versiones de artefactos escritas"})
		m.artifactsReused = prometheus.NewCounter(prometheus.CounterOpts{Name: "codemap_pipe_artifacts_reused_total", Help: "Escrituras de artefactos con contenido idéntico"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "codemap_pipe_phase_seconds", Help: "Duración por fase", Buckets: buckets}, []string{"phase"})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codemap_pipe_total_seconds", Help: "Duración total del job", Buckets: buckets})

		prometheus.MustRegister(
			m.jobsClaimed, m.jobsCompleted, m.jobsFailed, m.jobsRequeued, m.cacheHits,
			m.filesDiscovered, m.filesParsed, m.parseErrors,
			m.summariesLLM, m.summariesFallback,
			m.artifactsWritten, m.artifactsReused,
			m.phaseDuration, m.totalDuration,
		)
	})
}
