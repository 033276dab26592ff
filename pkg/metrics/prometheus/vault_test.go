package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVaultMetricsRecordsObservations(t *testing.T) {
	m := newVaultMetrics()
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordOpenFiles(3)
		m.ObserveBlockEncrypt(time.Millisecond)
		m.ObserveBlockDecrypt(time.Millisecond)
		m.ObserveCacheFlush(time.Millisecond)
		m.ObserveLockWait(time.Millisecond)
	})
}
