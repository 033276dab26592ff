package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVaultMetrics struct {
	openFiles uint64
	observed  int
}

func (f *fakeVaultMetrics) RecordOpenFiles(n uint64)            { f.openFiles = n }
func (f *fakeVaultMetrics) ObserveBlockEncrypt(d time.Duration) { f.observed++ }
func (f *fakeVaultMetrics) ObserveBlockDecrypt(d time.Duration) { f.observed++ }
func (f *fakeVaultMetrics) ObserveCacheFlush(d time.Duration)   { f.observed++ }
func (f *fakeVaultMetrics) ObserveLockWait(d time.Duration)     { f.observed++ }

func TestNewVaultMetricsNilWhenDisabled(t *testing.T) {
	InitRegistry(false)
	assert.Nil(t, NewVaultMetrics())
}

func TestNewVaultMetricsSingleton(t *testing.T) {
	fake := &fakeVaultMetrics{}
	RegisterVaultMetricsConstructor(func() VaultMetrics { return fake })
	InitRegistry(true)

	a := NewVaultMetrics()
	b := NewVaultMetrics()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestObserveHelpersNoopOnNil(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordOpenFiles(nil, 1)
		ObserveBlockEncrypt(nil, time.Millisecond)
		ObserveBlockDecrypt(nil, time.Millisecond)
		ObserveCacheFlush(nil, time.Millisecond)
		ObserveLockWait(nil, time.Millisecond)
	})
}

func TestObserveHelpersForwardToImplementation(t *testing.T) {
	fake := &fakeVaultMetrics{}
	RecordOpenFiles(fake, 7)
	ObserveBlockEncrypt(fake, time.Millisecond)

	assert.Equal(t, uint64(7), fake.openFiles)
	assert.Equal(t, 1, fake.observed)
}
