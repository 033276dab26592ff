package bijou

import (
	"testing"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/vpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWalksNestedDirectories(t *testing.T) {
	v := newTestVault(t)
	a, err := v.MakeNode(types.RootFileId, "a", types.Directory, "", nil)
	require.NoError(t, err)
	b, err := v.MakeNode(a.ID, "b", types.Directory, "", nil)
	require.NoError(t, err)
	f, err := v.MakeNode(b.ID, "c.txt", types.File, "", nil)
	require.NoError(t, err)

	id, err := v.Resolve(vpath.New("/a/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, f.ID, id)
}

func TestResolveFollowsSymlink(t *testing.T) {
	v := newTestVault(t)
	target, err := v.MakeNode(types.RootFileId, "real.txt", types.File, "", nil)
	require.NoError(t, err)
	_, err = v.MakeNode(types.RootFileId, "link.txt", types.Symlink, "/real.txt", nil)
	require.NoError(t, err)

	id, err := v.Resolve(vpath.New("/link.txt"))
	require.NoError(t, err)
	assert.Equal(t, target.ID, id)
}

func TestResolveDetectsSymlinkLoop(t *testing.T) {
	v := newTestVault(t)
	_, err := v.MakeNode(types.RootFileId, "a", types.Symlink, "/b", nil)
	require.NoError(t, err)
	_, err = v.MakeNode(types.RootFileId, "b", types.Symlink, "/a", nil)
	require.NoError(t, err)

	_, err = v.Resolve(vpath.New("/a"))
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.FilesystemLoop))
}

func TestResolveParentNamesFinalComponent(t *testing.T) {
	v := newTestVault(t)
	a, err := v.MakeNode(types.RootFileId, "dir", types.Directory, "", nil)
	require.NoError(t, err)

	parent, name, err := v.ResolveParent(vpath.New("/dir/file.txt"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, parent)
	assert.Equal(t, "file.txt", name)
}

func TestResolveParentAtRootHasNoName(t *testing.T) {
	v := newTestVault(t)
	parent, name, err := v.ResolveParent(vpath.New("/"))
	require.NoError(t, err)
	assert.Equal(t, types.RootFileId, parent)
	assert.Equal(t, "", name)
}

func TestResolveDotDotStopsAtRoot(t *testing.T) {
	v := newTestVault(t)
	id, err := v.Resolve(vpath.New("/../../.."))
	require.NoError(t, err)
	assert.Equal(t, types.RootFileId, id)
}
