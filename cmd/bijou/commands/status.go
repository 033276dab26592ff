package commands

import (
	"fmt"

	"github.com/marmos91/bijoufs/pkg/bijou"
	"github.com/marmos91/bijoufs/pkg/metrics"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	// Register the Prometheus-backed VaultMetrics implementation.
	_ "github.com/marmos91/bijoufs/pkg/metrics/prometheus"
)

var statusCmd = &cobra.Command{
	Use:   "status <vault-dir>",
	Short: "Report a vault's coarse statistics",
	Long: `Open a vault and report its block size, open-handle
count, and a one-shot snapshot of its in-process metrics registry
(block encrypt/decrypt latency, metadata-cache flush latency, lock
wait time) collected during this command's own brief session.

Examples:
  bijou status /srv/vaults/archive`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir := args[0]

	metrics.InitRegistry(loadedConfig == nil || loadedConfig.Metrics.Enabled)

	passphrase, err := PromptPassphrase("Passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer passphrase.Destroy()

	v, err := bijou.Open(dir, passphrase)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer v.Close()

	info, err := v.Statfs()
	if err != nil {
		return fmt.Errorf("failed to stat vault: %w", err)
	}

	fmt.Println()
	fmt.Println("Vault Status")
	fmt.Println("============")
	fmt.Println()
	fmt.Printf("  path:         %s\n", dir)
	fmt.Printf("  block size:   %d bytes\n", info.BlockSize)
	fmt.Printf("  open files:   %d\n", info.OpenFiles)
	fmt.Println()

	printMetricsSnapshot()
	return nil
}

func printMetricsSnapshot() {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		fmt.Printf("  (failed to gather metrics: %v)\n", err)
		return
	}
	if len(families) == 0 {
		fmt.Println("  (no metrics recorded during this session)")
		return
	}

	fmt.Println("Metrics snapshot")
	fmt.Println("----------------")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("  %-36s %s\n", mf.GetName(), formatMetric(mf.GetType(), m))
		}
	}
}

func formatMetric(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "n/a"
	}
}
