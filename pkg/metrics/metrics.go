package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Clock metrics
	ClockTick = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_clock_tick",
			Help: "Highest clock accepted into the instruction log, per core",
		},
		[]string{"core_id"},
	)

	ClockApplied = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_clock_applied",
			Help: "Highest clock durably applied to the data store, per core",
		},
		[]string{"core_id"},
	)

	// Data store metrics
	DataStoreApproximateCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_datastore_approximate_count",
			Help: "Approximate number of keys in the data namespace, per core",
		},
		[]string{"core_id"},
	)

	DataStoreApproximateSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_datastore_approximate_size_bytes",
			Help: "Approximate size in bytes of the data namespace, per core",
		},
		[]string{"core_id"},
	)

	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_flushes_total",
			Help: "Total number of successful flush() calls, per core",
		},
		[]string{"core_id"},
	)

	FlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridgedb_flush_duration_seconds",
			Help:    "Time taken for flush() to commit an atomic batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"core_id"},
	)

	CompactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_compactions_total",
			Help: "Total number of compaction passes that reclaimed at least one entry, per core and namespace",
		},
		[]string{"core_id", "namespace"},
	)

	// Instruction log metrics
	InstructionsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_instructions_saved_total",
			Help: "Total number of instructions saved to the instruction log",
		},
		[]string{"core_id"},
	)

	InstructionsCleared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_instructions_cleared_total",
			Help: "Total number of instructions cleared from the instruction log",
		},
		[]string{"core_id"},
	)

	// Checkpoint metrics
	CheckpointsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_checkpoints_created_total",
			Help: "Total number of checkpoints created, per core",
		},
		[]string{"core_id"},
	)

	CheckpointCreateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridgedb_checkpoint_create_duration_seconds",
			Help:    "Time taken to create a checkpoint",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"core_id"},
	)

	CheckpointsPruned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_checkpoints_pruned_total",
			Help: "Total number of checkpoints pruned, per core",
		},
		[]string{"core_id"},
	)

	// Transfer metrics
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_transfers_total",
			Help: "Total number of transfer_to attempts by outcome",
		},
		[]string{"core_id", "outcome"},
	)

	TransferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridgedb_transfer_duration_seconds",
			Help:    "Time taken for a full primary-to-follower transfer",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"core_id"},
	)

	BytesTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_bytes_transferred_total",
			Help: "Total bytes streamed by the file transfer primitive",
		},
		[]string{"core_id"},
	)

	// Task runner metrics
	TaskRunnerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_taskrunner_queue_depth",
			Help: "Current depth of the control-plane task runner queue, per core",
		},
		[]string{"core_id"},
	)

	TaskRunnerTaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridgedb_taskrunner_task_duration_seconds",
			Help:    "Time taken to execute one control-plane task",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"core_id"},
	)

	// Role metrics
	RoleIsPrimary = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridgedb_role_is_primary",
			Help: "Whether this core currently holds the primary role (1) or not (0)",
		},
		[]string{"core_id"},
	)

	RoleTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridgedb_role_transitions_total",
			Help: "Total number of role transitions observed, per core and event type",
		},
		[]string{"core_id", "event"},
	)
)

func init() {
	prometheus.MustRegister(ClockTick)
	prometheus.MustRegister(ClockApplied)
	prometheus.MustRegister(DataStoreApproximateCount)
	prometheus.MustRegister(DataStoreApproximateSize)
	prometheus.MustRegister(FlushesTotal)
	prometheus.MustRegister(FlushDuration)
	prometheus.MustRegister(CompactionsTotal)
	prometheus.MustRegister(InstructionsSaved)
	prometheus.MustRegister(InstructionsCleared)
	prometheus.MustRegister(CheckpointsCreated)
	prometheus.MustRegister(CheckpointCreateDuration)
	prometheus.MustRegister(CheckpointsPruned)
	prometheus.MustRegister(TransfersTotal)
	prometheus.MustRegister(TransferDuration)
	prometheus.MustRegister(BytesTransferred)
	prometheus.MustRegister(TaskRunnerQueueDepth)
	prometheus.MustRegister(TaskRunnerTaskDuration)
	prometheus.MustRegister(RoleIsPrimary)
	prometheus.MustRegister(RoleTransitionsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
