package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fleetwatch_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	pollCycles       *prometheus.CounterVec
	pollCycleLatency prometheus.Histogram
	devicesEvaluated prometheus.Counter
	devicesSkipped   prometheus.Counter
	devicesActive    prometheus.Gauge

	alertEvents *prometheus.CounterVec
	notifySends *prometheus.CounterVec

	anomaliesDetected *prometheus.CounterVec
	anomaliesAcked    *prometheus.CounterVec

	writerBatches *prometheus.CounterVec
	writerRetries prometheus.Counter
)

// Init registers observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		pollCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_cycles_total",
				Help: "Total poll cycles by result",
			},
			[]string{"result"},
		)
		pollCycleLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_cycle_seconds",
				Help:    "Poll cycle duration",
				Buckets: prometheus.DefBuckets,
			},
		)
		devicesEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "devices_evaluated_total",
			Help: "Devices evaluated across all cycles",
		})
		devicesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "devices_skipped_total",
			Help: "Devices skipped due to source errors",
		})
		devicesActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "devices_active",
			Help: "Active devices seen in the latest cycle",
		})
		alertEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Alert lifecycle events by type",
			},
			[]string{"type"},
		)
		notifySends = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_sends_total",
				Help: "Notification channel sends by result",
			},
			[]string{"result"},
		)
		anomaliesDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "anomalies_detected_total",
				Help: "New anomalies surfaced by kind",
			},
			[]string{"kind"},
		)
		anomaliesAcked = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "anomalies_acked_total",
				Help: "Anomalies acknowledged by kind",
			},
			[]string{"kind"},
		)
		writerBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "writer_batches_total",
				Help: "Async writer batches by result",
			},
			[]string{"result"},
		)
		writerRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "writer_retries_total",
			Help: "Async writer batch requeues",
		})

		prometheus.MustRegister(
			pollCycles, pollCycleLatency,
			devicesEvaluated, devicesSkipped, devicesActive,
			alertEvents, notifySends,
			anomaliesDetected, anomaliesAcked,
			writerBatches, writerRetries,
		)
	})
}

// IncPollCycle counts one completed poll cycle.
func IncPollCycle(ok bool) {
	if pollCycles == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	pollCycles.WithLabelValues(result).Inc()
}

// ObservePollCycle records cycle duration in seconds.
func ObservePollCycle(seconds float64) {
	if pollCycleLatency != nil {
		pollCycleLatency.Observe(seconds)
	}
}

// AddDevicesEvaluated counts evaluated devices.
func AddDevicesEvaluated(n int) {
	if devicesEvaluated != nil && n > 0 {
		devicesEvaluated.Add(float64(n))
	}
}

// AddDevicesSkipped counts devices skipped on source errors.
func AddDevicesSkipped(n int) {
	if devicesSkipped != nil && n > 0 {
		devicesSkipped.Add(float64(n))
	}
}

// SetDevicesActive records the active-device gauge.
func SetDevicesActive(n int) {
	if devicesActive != nil {
		devicesActive.Set(float64(n))
	}
}

// IncAlertEvent counts an alert lifecycle event.
func IncAlertEvent(eventType string) {
	if alertEvents != nil {
		alertEvents.WithLabelValues(eventType).Inc()
	}
}

// IncNotifySend counts a channel send by result.
func IncNotifySend(result string) {
	if notifySends != nil {
		notifySends.WithLabelValues(result).Inc()
	}
}

// IncAnomaliesDetected counts newly surfaced anomalies.
func IncAnomaliesDetected(kind string, n int) {
	if anomaliesDetected != nil && n > 0 {
		anomaliesDetected.WithLabelValues(kind).Add(float64(n))
	}
}

// IncAnomalyAcked counts one acknowledgement.
func IncAnomalyAcked(kind string) {
	if anomaliesAcked != nil {
		anomaliesAcked.WithLabelValues(kind).Inc()
	}
}

// IncWriterBatch counts one async writer batch by result.
func IncWriterBatch(ok bool) {
	if writerBatches == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	writerBatches.WithLabelValues(result).Inc()
}

// IncWriterRetry counts one async writer requeue.
func IncWriterRetry() {
	if writerRetries != nil {
		writerRetries.Inc()
	}
}
