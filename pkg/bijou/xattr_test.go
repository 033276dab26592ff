package bijou

import (
	"sort"
	"testing"

	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXattrSetGetRemove(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "f.txt", types.File, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.SetXattr(meta.ID, "user.tag", []byte("value")))

	got, err := v.GetXattr(meta.ID, "user.tag")
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))

	require.NoError(t, v.RemoveXattr(meta.ID, "user.tag"))
	_, err = v.GetXattr(meta.ID, "user.tag")
	require.Error(t, err)
}

func TestListXattrReturnsAllNames(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "f.txt", types.File, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.SetXattr(meta.ID, "user.a", []byte("1")))
	require.NoError(t, v.SetXattr(meta.ID, "user.b", []byte("2")))

	names, err := v.ListXattr(meta.ID)
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"user.a", "user.b"}, names)
}

func TestUnlinkRemovesXattrs(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "f.txt", types.File, "", nil)
	require.NoError(t, err)
	require.NoError(t, v.SetXattr(meta.ID, "user.a", []byte("1")))

	_, err = v.Unlink(types.RootFileId, "f.txt")
	require.NoError(t, err)

	names, err := v.ListXattr(meta.ID)
	require.NoError(t, err)
	assert.Empty(t, names)
}
