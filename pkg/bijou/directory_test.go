package bijou

import (
	"testing"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNodeThenLookupFindsIt(t *testing.T) {
	v := newTestVault(t)

	meta, err := v.MakeNode(types.RootFileId, "hello.txt", types.File, "", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), meta.NLinks)

	item, err := v.Lookup(types.RootFileId, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, item.ID)
	assert.Equal(t, types.File, item.Kind)
}

func TestMakeNodeDuplicateNameFails(t *testing.T) {
	v := newTestVault(t)
	_, err := v.MakeNode(types.RootFileId, "dup", types.File, "", nil)
	require.NoError(t, err)

	_, err = v.MakeNode(types.RootFileId, "dup", types.File, "", nil)
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.AlreadyExists))
}

func TestMakeDirectorySetsDotAndDotDot(t *testing.T) {
	v := newTestVault(t)

	meta, err := v.MakeNode(types.RootFileId, "sub", types.Directory, "", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), meta.NLinks)

	self, err := v.Lookup(meta.ID, ".")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, self.ID)

	parent, err := v.Lookup(meta.ID, "..")
	require.NoError(t, err)
	assert.Equal(t, types.RootFileId, parent.ID)

	rootMeta, err := v.getMeta(types.RootFileId)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), rootMeta.NLinks)
}

func TestLookupMissingReturnsNotFound(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Lookup(types.RootFileId, "nope")
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))
}

func TestUnlinkRemovesFileWhenNlinksReachesZero(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "gone.txt", types.File, "", nil)
	require.NoError(t, err)

	removed, err := v.Unlink(types.RootFileId, "gone.txt")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, meta.ID, *removed)

	_, err = v.Lookup(types.RootFileId, "gone.txt")
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))

	_, err = v.getMeta(meta.ID)
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))
}

func TestUnlinkNonEmptyDirectoryFails(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "sub", types.Directory, "", nil)
	require.NoError(t, err)
	_, err = v.MakeNode(meta.ID, "child.txt", types.File, "", nil)
	require.NoError(t, err)

	_, err = v.Unlink(types.RootFileId, "sub")
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.NotEmpty))
}

func TestLinkSurvivesOriginalUnlink(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "orig.txt", types.File, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.Link(meta.ID, types.RootFileId, "linked.txt"))

	linkedMeta, err := v.getMeta(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), linkedMeta.NLinks)

	removed, err := v.Unlink(types.RootFileId, "orig.txt")
	require.NoError(t, err)
	assert.Nil(t, removed)

	item, err := v.Lookup(types.RootFileId, "linked.txt")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, item.ID)
}

func TestLinkRejectsDirectory(t *testing.T) {
	v := newTestVault(t)
	meta, err := v.MakeNode(types.RootFileId, "sub", types.Directory, "", nil)
	require.NoError(t, err)

	err = v.Link(meta.ID, types.RootFileId, "sub2")
	require.Error(t, err)
	assert.True(t, bijouerr.Is(err, bijouerr.InvalidInput))
}

func TestRenameMovesEntryAcrossDirectories(t *testing.T) {
	v := newTestVault(t)
	dirA, err := v.MakeNode(types.RootFileId, "a", types.Directory, "", nil)
	require.NoError(t, err)
	dirB, err := v.MakeNode(types.RootFileId, "b", types.Directory, "", nil)
	require.NoError(t, err)

	file, err := v.MakeNode(dirA.ID, "x.txt", types.File, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.Rename(dirA.ID, "x.txt", dirB.ID, "y.txt"))

	_, err = v.Lookup(dirA.ID, "x.txt")
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))

	item, err := v.Lookup(dirB.ID, "y.txt")
	require.NoError(t, err)
	assert.Equal(t, file.ID, item.ID)
}

func TestRenameMovedDirectoryUpdatesDotDot(t *testing.T) {
	v := newTestVault(t)
	dirA, err := v.MakeNode(types.RootFileId, "a", types.Directory, "", nil)
	require.NoError(t, err)
	dirB, err := v.MakeNode(types.RootFileId, "b", types.Directory, "", nil)
	require.NoError(t, err)

	moved, err := v.MakeNode(dirA.ID, "moved", types.Directory, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.Rename(dirA.ID, "moved", dirB.ID, "moved"))

	dotdot, err := v.Lookup(moved.ID, "..")
	require.NoError(t, err)
	assert.Equal(t, dirB.ID, dotdot.ID)

	aMeta, err := v.getMeta(dirA.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), aMeta.NLinks)

	bMeta, err := v.getMeta(dirB.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), bMeta.NLinks)
}

func TestRenameOverwritesExistingTarget(t *testing.T) {
	v := newTestVault(t)
	_, err := v.MakeNode(types.RootFileId, "src.txt", types.File, "", nil)
	require.NoError(t, err)
	victim, err := v.MakeNode(types.RootFileId, "dst.txt", types.File, "", nil)
	require.NoError(t, err)

	require.NoError(t, v.Rename(types.RootFileId, "src.txt", types.RootFileId, "dst.txt"))

	_, err = v.getMeta(victim.ID)
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))

	_, err = v.Lookup(types.RootFileId, "src.txt")
	assert.True(t, bijouerr.Is(err, bijouerr.NotFound))
}

func TestReaddirListsEntries(t *testing.T) {
	v := newTestVault(t)
	_, err := v.MakeNode(types.RootFileId, "one.txt", types.File, "", nil)
	require.NoError(t, err)
	_, err = v.MakeNode(types.RootFileId, "two.txt", types.File, "", nil)
	require.NoError(t, err)

	entries, err := v.Readdir(types.RootFileId)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["."])
	assert.True(t, names[".."])
	assert.True(t, names["one.txt"])
	assert.True(t, names["two.txt"])
}
