package secretbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceZeroesSource(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	buf := FromSlice(src)
	defer buf.Destroy()

	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())
	assert.Equal(t, []byte{0, 0, 0, 0}, src)
}

func TestCloneIsIndependent(t *testing.T) {
	buf := New(4)
	copy(buf.Mutable(), []byte{9, 9, 9, 9})
	defer buf.Destroy()

	clone := buf.Clone()
	require.NotNil(t, clone)
	defer clone.Destroy()

	assert.Equal(t, buf.Bytes(), clone.Bytes())

	clone.Mutable()[0] = 1
	assert.NotEqual(t, buf.Bytes()[0], clone.Bytes()[0])
}

func TestDestroyZeroes(t *testing.T) {
	buf := New(8)
	copy(buf.Mutable(), []byte("deadbeef"))
	buf.Destroy()

	assert.True(t, bytes.Equal(buf.Bytes(), make([]byte, 8)))
}

func TestZeroOverwrites(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}

func TestNewEmpty(t *testing.T) {
	buf := New(0)
	defer buf.Destroy()
	assert.Equal(t, 0, buf.Len())
}
