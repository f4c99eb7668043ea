// Package metrics registers the Prometheus instruments the bot updates
// during operation:
//   - bot_scan_cycles_total{cadence}      – completed scan cycles by cadence
//   - bot_symbols_scanned_total           – symbols evaluated across all cycles
//   - bot_symbol_errors_total{stage}      – per-symbol failures by pipeline stage
//   - bot_alerts_total{kind}              – alerts published by kind
//   - bot_alerts_throttled_total          – alerts blocked by the governor
//   - bot_watchlist_size                  – current watchlist size (gauge)
//   - bot_positions_open                  – currently monitored positions (gauge)
//   - bot_scan_duration_seconds{cadence}  – wall time of a full cycle
//
// They are registered in init() and served at /metrics in Prometheus text
// exposition format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	scanCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_scan_cycles_total",
			Help: "Completed scan cycles",
		},
		[]string{"cadence"}, // slow|fast|monitor
	)

	symbolsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_symbols_scanned_total",
			Help: "Symbols evaluated",
		},
	)

	symbolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_symbol_errors_total",
			Help: "Per-symbol failures by pipeline stage",
		},
		[]string{"stage"}, // candles|patterns|notify
	)

	alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_alerts_total",
			Help: "Alerts published",
		},
		[]string{"kind"},
	)

	alertsThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_alerts_throttled_total",
			Help: "Alerts blocked by cooldown or daily cap",
		},
	)

	watchlistSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_watchlist_size",
			Help: "Current watchlist size",
		},
	)

	positionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_positions_open",
			Help: "Currently monitored positions",
		},
	)

	scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_scan_duration_seconds",
			Help:    "Wall time of a full scan cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"cadence"},
	)
)

func init() {
	prometheus.MustRegister(scanCycles, symbolsScanned, symbolErrors)
	prometheus.MustRegister(alerts, alertsThrottled)
	prometheus.MustRegister(watchlistSize, positionsOpen, scanDuration)
}

func IncScanCycle(cadence string)        { scanCycles.WithLabelValues(cadence).Inc() }
func IncSymbolsScanned(n int)            { symbolsScanned.Add(float64(n)) }
func IncSymbolError(stage string)        { symbolErrors.WithLabelValues(stage).Inc() }
func IncAlert(kind string)               { alerts.WithLabelValues(kind).Inc() }
func IncAlertThrottled()                 { alertsThrottled.Inc() }
func SetWatchlistSize(n int)             { watchlistSize.Set(float64(n)) }
func SetPositionsOpen(n int)             { positionsOpen.Set(float64(n)) }
func ObserveScanDuration(cadence string, seconds float64) {
	scanDuration.WithLabelValues(cadence).Observe(seconds)
}
