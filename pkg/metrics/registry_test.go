package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRegistryReturnsSameInstance(t *testing.T) {
	a := GetRegistry()
	b := GetRegistry()
	assert.Same(t, a, b)
}

func TestInitRegistryTogglesEnabled(t *testing.T) {
	InitRegistry(true)
	assert.True(t, IsEnabled())

	InitRegistry(false)
	assert.False(t, IsEnabled())
}
