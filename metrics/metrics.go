package metrics

import (
	"fmt"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	heightGauge          prometheus.Gauge
	epochGauge           prometheus.Gauge
	pflopsGauge          prometheus.Gauge
	txsPerSecGauge       prometheus.Gauge
	connectionStateGauge prometheus.Gauge
	trackingGauge        prometheus.Gauge
	reconnectsCounter    prometheus.Counter
	droppedFramesCounter *prometheus.CounterVec
	blocksCounter        prometheus.Counter
	transactionsCounter  prometheus.Counter
	refreshErrorsCounter prometheus.Counter
}

func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := Metrics{
		// chain values as last seen
		heightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_chain_height", namespace),
			Help: "The latest known chain height",
		}),
		epochGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_chain_epoch", namespace),
			Help: "The latest known epoch",
		}),
		pflopsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_chain_pflops", namespace),
			Help: "The latest reported network PFLOPS",
		}),
		txsPerSecGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_chain_txs_per_sec", namespace),
			Help: "The latest reported transaction throughput",
		}),
		// event stream
		connectionStateGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_stream_connection_state", namespace),
			Help: "Event stream state (0 connecting, 1 open, 2 closed)",
		}),
		reconnectsCounter: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_stream_reconnects_total", namespace),
			Help: "Number of event stream reconnect attempts",
		}),
		droppedFramesCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_stream_dropped_frames_total", namespace),
			Help: "Number of dropped event stream frames",
		}, []string{"reason"}),
		trackingGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_tracking_enabled", namespace),
			Help: "1 if an account is tracked",
		}),
		// view
		blocksCounter: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_ingested_blocks_total", namespace),
			Help: "Number of ingested block records",
		}),
		transactionsCounter: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_ingested_transactions_total", namespace),
			Help: "Number of ingested transaction records",
		}),
		refreshErrorsCounter: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_refresh_errors_total", namespace),
			Help: "Number of failed refresh cycles",
		}),
	}
	return &m
}

func (metrics *Metrics) SetChainStats(stats entities.ChainStats) {
	metrics.heightGauge.Set(float64(stats.Height))
	metrics.epochGauge.Set(float64(stats.Epoch()))
	metrics.pflopsGauge.Set(stats.Pflops)
	metrics.txsPerSecGauge.Set(stats.TxsPerSec)
}

func (metrics *Metrics) SetConnectionState(state int) {
	metrics.connectionStateGauge.Set(float64(state))
}

func (metrics *Metrics) IncReconnects() {
	metrics.reconnectsCounter.Inc()
}

func (metrics *Metrics) IncDroppedFrames(reason string) {
	metrics.droppedFramesCounter.WithLabelValues(reason).Inc()
}

func (metrics *Metrics) SetTracking(enabled bool) {
	if enabled {
		metrics.trackingGauge.Set(1)
	} else {
		metrics.trackingGauge.Set(0)
	}
}

func (metrics *Metrics) AddIngestedBlocks(count int) {
	metrics.blocksCounter.Add(float64(count))
}

func (metrics *Metrics) AddIngestedTransactions(count int) {
	metrics.transactionsCounter.Add(float64(count))
}

func (metrics *Metrics) IncRefreshErrors() {
	metrics.refreshErrorsCounter.Inc()
}
