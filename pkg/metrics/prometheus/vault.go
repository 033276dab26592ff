package prometheus

import (
	"time"

	"github.com/marmos91/bijoufs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterVaultMetricsConstructor(func() metrics.VaultMetrics {
		return newVaultMetrics()
	})
}

// vaultMetrics is the Prometheus implementation of metrics.VaultMetrics.
type vaultMetrics struct {
	openFiles    prometheus.Gauge
	blockEncrypt prometheus.Histogram
	blockDecrypt prometheus.Histogram
	cacheFlush   prometheus.Histogram
	lockWait     prometheus.Histogram
}

var _ metrics.VaultMetrics = (*vaultMetrics)(nil)

func newVaultMetrics() *vaultMetrics {
	reg := metrics.GetRegistry()

	return &vaultMetrics{
		openFiles: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "bijou_open_files",
			Help: "Number of currently open regular-file handles.",
		}),
		blockEncrypt: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "bijou_block_encrypt_seconds",
			Help:    "Latency of encrypting one content block.",
			Buckets: prometheus.DefBuckets,
		}),
		blockDecrypt: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "bijou_block_decrypt_seconds",
			Help:    "Latency of decrypting one content block.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheFlush: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "bijou_metacache_flush_seconds",
			Help:    "Latency of one metadata-cache background flush round.",
			Buckets: prometheus.DefBuckets,
		}),
		lockWait: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "bijou_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a per-id lock.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *vaultMetrics) RecordOpenFiles(n uint64)            { m.openFiles.Set(float64(n)) }
func (m *vaultMetrics) ObserveBlockEncrypt(d time.Duration) { m.blockEncrypt.Observe(d.Seconds()) }
func (m *vaultMetrics) ObserveBlockDecrypt(d time.Duration) { m.blockDecrypt.Observe(d.Seconds()) }
func (m *vaultMetrics) ObserveCacheFlush(d time.Duration)   { m.cacheFlush.Observe(d.Seconds()) }
func (m *vaultMetrics) ObserveLockWait(d time.Duration)     { m.lockWait.Observe(d.Seconds()) }
