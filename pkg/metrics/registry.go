// Package metrics is the in-process Prometheus registry the CLI's status
// command snapshots: open file count, block-pipeline encrypt/decrypt
// latency, metadata-cache flush count/latency, and per-id lock wait
// time. There is no HTTP listener — network exposure is out of scope —
// so the registry is only ever read back in-process. This package is
// the vendor-neutral surface components call; pkg/metrics/prometheus
// holds the actual collectors, registered via
// RegisterVaultMetricsConstructor to avoid an import cycle between the
// two.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
	enabled    bool
)

// InitRegistry enables or disables metrics collection for the process.
// Call once, before opening a vault, from the CLI entrypoint.
func InitRegistry(enable bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	enabled = enable
	if enable && registry == nil {
		registry = prometheus.NewRegistry()
	}
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	return enabled
}

// GetRegistry returns the process-wide registry, creating it on first
// use if InitRegistry was never called.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}
