package vpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAbsolute(t *testing.T) {
	p := New("/a/b/c")
	assert.True(t, p.IsAbsolute())
	assert.Equal(t, "/a/b/c", p.String())
}

func TestParseRelative(t *testing.T) {
	p := New("a/b")
	assert.False(t, p.IsAbsolute())
	assert.Equal(t, "a/b", p.String())
}

func TestParseCollapsesEmptySegments(t *testing.T) {
	p := New("/a//b///c/")
	assert.Equal(t, "/a/b/c", p.String())
}

func TestComponentsIncludesRootDirOnlyWhenAbsolute(t *testing.T) {
	abs := New("/a")
	comps := abs.Components()
	assert.Equal(t, RootDir, comps[0].Kind)

	rel := New("a")
	comps = rel.Components()
	assert.Equal(t, Normal, comps[0].Kind)
}

func TestComponentsTagsSpecialNames(t *testing.T) {
	p := New("/a/./..")
	comps := p.Components()
	assert.Equal(t, []ComponentKind{RootDir, Normal, CurDir, ParentDir}, kinds(comps))
}

func TestJoinRelative(t *testing.T) {
	base := New("/a/b")
	joined := base.Join(New("c/d"))
	assert.Equal(t, "/a/b/c/d", joined.String())
}

func TestJoinAbsoluteResets(t *testing.T) {
	base := New("/a/b")
	joined := base.Join(New("/x/y"))
	assert.Equal(t, "/x/y", joined.String())
}

func TestParent(t *testing.T) {
	p := New("/a/b/c")
	assert.Equal(t, "/a/b", p.Parent().String())
	assert.Equal(t, "/a", p.Parent().Parent().String())
}

func TestParentOfRoot(t *testing.T) {
	p := New("/")
	assert.Equal(t, "/", p.Parent().String())
}

func TestBase(t *testing.T) {
	assert.Equal(t, "c", New("/a/b/c").Base())
	assert.Equal(t, "", New("/").Base())
}

func TestIteratorForwardAndBackward(t *testing.T) {
	p := New("/a/b")
	it := p.Iter()
	assert.True(t, it.AtStart())

	c1, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, RootDir, c1.Kind)

	c2, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, "a", c2.Name)

	back, ok := it.Prev()
	assert.True(t, ok)
	assert.Equal(t, "a", back.Name)

	_, ok = it.Prev()
	assert.True(t, ok) // back to RootDir
	assert.True(t, it.AtStart())

	_, ok = it.Prev()
	assert.False(t, ok)
}

func kinds(comps []Component) []ComponentKind {
	out := make([]ComponentKind, len(comps))
	for i, c := range comps {
		out[i] = c.Kind
	}
	return out
}
