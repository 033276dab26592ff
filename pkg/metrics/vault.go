package metrics

import (
	"sync"
	"time"
)

// VaultMetrics records the inode layer and block pipeline's runtime
// instrumentation: open file count, block encrypt/decrypt latency,
// metadata cache flush count/latency, and per-id lock wait time.
type VaultMetrics interface {
	RecordOpenFiles(n uint64)
	ObserveBlockEncrypt(d time.Duration)
	ObserveBlockDecrypt(d time.Duration)
	ObserveCacheFlush(d time.Duration)
	ObserveLockWait(d time.Duration)
}

var newPrometheusVaultMetrics func() VaultMetrics

// RegisterVaultMetricsConstructor is called by pkg/metrics/prometheus's
// init() to supply the Prometheus-backed implementation. The indirection
// avoids an import cycle between the two packages.
func RegisterVaultMetricsConstructor(constructor func() VaultMetrics) {
	newPrometheusVaultMetrics = constructor
}

var (
	vaultMetricsOnce sync.Once
	vaultMetricsInst VaultMetrics
)

// NewVaultMetrics returns the process-wide VaultMetrics instance, or nil
// if metrics are disabled (in which case every ObserveX/RecordX helper
// below is a no-op). The underlying Prometheus collectors are built
// exactly once no matter how many vaults, handles or caches ask.
func NewVaultMetrics() VaultMetrics {
	if !IsEnabled() || newPrometheusVaultMetrics == nil {
		return nil
	}
	vaultMetricsOnce.Do(func() {
		vaultMetricsInst = newPrometheusVaultMetrics()
	})
	return vaultMetricsInst
}

func RecordOpenFiles(m VaultMetrics, n uint64) {
	if m != nil {
		m.RecordOpenFiles(n)
	}
}

func ObserveBlockEncrypt(m VaultMetrics, d time.Duration) {
	if m != nil {
		m.ObserveBlockEncrypt(d)
	}
}

func ObserveBlockDecrypt(m VaultMetrics, d time.Duration) {
	if m != nil {
		m.ObserveBlockDecrypt(d)
	}
}

func ObserveCacheFlush(m VaultMetrics, d time.Duration) {
	if m != nil {
		m.ObserveCacheFlush(d)
	}
}

func ObserveLockWait(m VaultMetrics, d time.Duration) {
	if m != nil {
		m.ObserveLockWait(d)
	}
}
