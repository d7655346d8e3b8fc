/*
Package metrics provides Prometheus metrics collection and exposition for the
storage core.

The metrics package defines and registers every core metric using the
Prometheus client library, giving observability into clock progression, data
store size, checkpoint cadence, transfer outcomes, task runner depth and role
status. Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │  Gauge: clock_tick, clock_applied, queue    │          │
	│  │  Counter: flushes, checkpoints, transfers   │          │
	│  │  Histogram: flush/checkpoint/transfer time  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Clock and Data Store:

ridgedb_clock_tick{core_id}, ridgedb_clock_applied{core_id}:
  - Type: Gauge
  - Description: highest accepted / durably applied clock, sampled by the
    storage core's statistics collector.

ridgedb_datastore_approximate_count{core_id}, ridgedb_datastore_approximate_size_bytes{core_id}:
  - Type: Gauge

Flush and Compaction:

ridgedb_flushes_total{core_id}, ridgedb_flush_duration_seconds{core_id}:
  - Type: Counter / Histogram

ridgedb_compactions_total{core_id, namespace}:
  - Type: Counter

Instruction Log:

ridgedb_instructions_saved_total{core_id}, ridgedb_instructions_cleared_total{core_id}:
  - Type: Counter

Checkpoint:

ridgedb_checkpoints_created_total{core_id}, ridgedb_checkpoint_create_duration_seconds{core_id}:
  - Type: Counter / Histogram

ridgedb_checkpoints_pruned_total{core_id}:
  - Type: Counter

Transfer:

ridgedb_transfers_total{core_id, outcome}, ridgedb_transfer_duration_seconds{core_id}:
  - Type: Counter / Histogram

ridgedb_bytes_transferred_total{core_id}:
  - Type: Counter

Task Runner and Role:

ridgedb_taskrunner_queue_depth{core_id}, ridgedb_taskrunner_task_duration_seconds{core_id}:
  - Type: Gauge / Histogram

ridgedb_role_is_primary{core_id}, ridgedb_role_transitions_total{core_id, event}:
  - Type: Gauge / Counter

# Usage

	import "github.com/cuemby/ridgedb/pkg/metrics"

	timer := metrics.NewTimer()
	err := core.Flush(w)
	timer.ObserveDurationVec(metrics.FlushDuration, coreID)
	if err == nil {
		metrics.FlushesTotal.WithLabelValues(coreID).Inc()
	}

	http.Handle("/metrics", metrics.Handler())

# Health and Readiness

RegisterComponent/GetHealth/GetReadiness track the liveness of the data
store, instruction log and replication adapter; see health.go. Readiness
requires "datastore", "instructionlog" and "replication" to all report
healthy.

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
