package bijou

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/vpath"
)

// maxSymlinkHops bounds recursive symlink resolution, per §4.10.
const maxSymlinkHops = 40

// Resolve walks path from the root, following symlinks, and returns the
// FileId it names.
func (v *Vault) Resolve(path vpath.Path) (types.FileId, error) {
	stack := []types.FileId{types.RootFileId}
	stack, err := v.resolveInto(stack, path.Iter(), 0)
	if err != nil {
		return 0, err
	}
	return stack[len(stack)-1], nil
}

// ResolveParent resolves path's parent directory and returns it alongside
// the final component's name. If path names the root itself, name is "".
func (v *Vault) ResolveParent(path vpath.Path) (types.FileId, string, error) {
	name := path.Base()
	if name == "" {
		id, err := v.Resolve(path)
		return id, "", err
	}
	parentID, err := v.Resolve(path.Parent())
	if err != nil {
		return 0, "", err
	}
	return parentID, name, nil
}

// resolveInto walks it, pushing/popping onto (a copy of) stack, following
// symlinks recursively while respecting depth.
func (v *Vault) resolveInto(stack []types.FileId, it *vpath.Iterator, depth int) ([]types.FileId, error) {
	for {
		comp, ok := it.Next()
		if !ok {
			return stack, nil
		}

		switch comp.Kind {
		case vpath.RootDir:
			stack = stack[:1]
		case vpath.CurDir:
			// no-op
		case vpath.ParentDir:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case vpath.Normal:
			top := stack[len(stack)-1]
			item, err := v.Lookup(top, comp.Name)
			if err != nil {
				return nil, err
			}
			if item.Kind == types.Symlink {
				if depth >= maxSymlinkHops {
					return nil, bijouerr.New(bijouerr.FilesystemLoop, "too many symlink hops")
				}
				target, err := v.kv.Get(symlinkKey(item.ID))
				if err != nil {
					return nil, err
				}
				targetPath := vpath.New(string(target))
				next := append([]types.FileId(nil), stack...)
				resolved, err := v.resolveInto(next, targetPath.Iter(), depth+1)
				if err != nil {
					return nil, err
				}
				stack = resolved
				continue
			}
			stack = append(stack, item.ID)
		}
	}
}
