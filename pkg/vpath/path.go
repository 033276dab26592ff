// Package vpath implements Bijou's UTF-8-only path type (§4.8): always
// '/'-separated regardless of host platform, with a bidirectional
// component iterator distinguishing root, current-dir, parent-dir and
// named components.
package vpath

import "strings"

// ComponentKind tags a path component's variant.
type ComponentKind int

const (
	RootDir ComponentKind = iota
	CurDir
	ParentDir
	Normal
)

// Component is one '/'-separated element of a Path.
type Component struct {
	Kind ComponentKind
	Name string // set only when Kind == Normal
}

// Path is an immutable, slash-separated path. The zero value is the
// empty relative path.
type Path struct {
	absolute bool
	parts    []string // Normal/CurDir/ParentDir segments, in order
}

// New parses s into a Path. A leading '/' marks it absolute.
func New(s string) Path {
	absolute := strings.HasPrefix(s, "/")
	raw := strings.Split(s, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return Path{absolute: absolute, parts: parts}
}

// IsAbsolute reports whether the path begins at root.
func (p Path) IsAbsolute() bool { return p.absolute }

// String renders the path back to its '/'-joined form.
func (p Path) String() string {
	joined := strings.Join(p.parts, "/")
	if p.absolute {
		return "/" + joined
	}
	return joined
}

// Components returns the path's components in forward order, including
// a leading RootDir component if the path is absolute.
func (p Path) Components() []Component {
	out := make([]Component, 0, len(p.parts)+1)
	if p.absolute {
		out = append(out, Component{Kind: RootDir})
	}
	for _, part := range p.parts {
		switch part {
		case ".":
			out = append(out, Component{Kind: CurDir})
		case "..":
			out = append(out, Component{Kind: ParentDir})
		default:
			out = append(out, Component{Kind: Normal, Name: part})
		}
	}
	return out
}

// Join appends other to p. If other is absolute, it replaces p
// entirely, per §4.8 ("joining with an absolute path resets to that
// path").
func (p Path) Join(other Path) Path {
	if other.absolute {
		return other
	}
	return Path{absolute: p.absolute, parts: append(append([]string{}, p.parts...), other.parts...)}
}

// Parent returns the prefix of p up to (not including) the last
// Normal/CurDir/ParentDir component. For a path with no components, it
// returns itself.
func (p Path) Parent() Path {
	if len(p.parts) == 0 {
		return p
	}
	return Path{absolute: p.absolute, parts: p.parts[:len(p.parts)-1]}
}

// Base returns the final Normal/CurDir/ParentDir component's raw name,
// or "" if the path has no components (root or empty).
func (p Path) Base() string {
	if len(p.parts) == 0 {
		return ""
	}
	return p.parts[len(p.parts)-1]
}

// Iterator walks a Path's components bidirectionally.
type Iterator struct {
	components []Component
	pos        int // index of the next component Next() would return
}

// Iter returns a fresh Iterator positioned before the first component.
func (p Path) Iter() *Iterator {
	return &Iterator{components: p.Components()}
}

// Next returns the next component and advances, or (_, false) at the
// end.
func (it *Iterator) Next() (Component, bool) {
	if it.pos >= len(it.components) {
		return Component{}, false
	}
	c := it.components[it.pos]
	it.pos++
	return c, true
}

// Prev moves back one component and returns it, or (_, false) if
// already at the start.
func (it *Iterator) Prev() (Component, bool) {
	if it.pos == 0 {
		return Component{}, false
	}
	it.pos--
	return it.components[it.pos], true
}

// AtStart reports whether the iterator is positioned before the first
// component (used so RootDir is only emitted at position 0).
func (it *Iterator) AtStart() bool { return it.pos == 0 }
