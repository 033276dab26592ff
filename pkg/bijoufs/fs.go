// Package bijoufs is a thin POSIX-convenience wrapper over pkg/bijou.Vault:
// path-based Open/Mkdir/Remove/Rename/Symlink/Readlink/Stat calls and
// io.ReadWriteSeeker-shaped file handles. The inode layer itself only knows
// (parent, name) pairs and FileIds; this package resolves full paths and
// tracks the append-mode cursor the core has no notion of (per §6).
package bijoufs

import (
	"io"
	"os"

	"github.com/marmos91/bijoufs/pkg/bijou"
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/secretbuf"
	"github.com/marmos91/bijoufs/pkg/vpath"
)

// FS is an open vault addressed by path instead of (parent FileId, name).
type FS struct {
	v *bijou.Vault
}

// Create initializes a new vault at dir and returns it opened.
func Create(dir string, passphrase *secretbuf.Buffer, cfg bijou.Config) (*FS, error) {
	v, err := bijou.Create(dir, passphrase, cfg)
	if err != nil {
		return nil, err
	}
	return &FS{v: v}, nil
}

// Open opens an existing vault at dir.
func Open(dir string, passphrase *secretbuf.Buffer) (*FS, error) {
	v, err := bijou.Open(dir, passphrase)
	if err != nil {
		return nil, err
	}
	return &FS{v: v}, nil
}

// Close releases the underlying vault.
func (fs *FS) Close() error {
	return fs.v.Close()
}

// Vault exposes the wrapped core, for callers that need the lower-level
// (parent, name) contract directly (e.g. a host bridge).
func (fs *FS) Vault() *bijou.Vault {
	return fs.v
}

func resolveParent(v *bijou.Vault, path string) (types.FileId, string, error) {
	return v.ResolveParent(vpath.New(path))
}

func resolve(v *bijou.Vault, path string) (types.FileId, error) {
	return v.Resolve(vpath.New(path))
}

// Stat resolves path and returns its attribute view.
func (fs *FS) Stat(path string) (bijou.Info, error) {
	id, err := resolve(fs.v, path)
	if err != nil {
		return bijou.Info{}, err
	}
	return fs.v.GetAttr(id)
}

// Mkdir creates the directory named by path. The parent must already exist.
func (fs *FS) Mkdir(path string, perms *types.Perms) error {
	parent, name, err := resolveParent(fs.v, path)
	if err != nil {
		return err
	}
	if name == "" {
		return bijouerr.New(bijouerr.AlreadyExists, "mkdir: path names the root")
	}
	_, err = fs.v.Mkdir(parent, name, perms)
	return err
}

// MkdirAll creates path and any missing parents, in the manner of os.MkdirAll.
func (fs *FS) MkdirAll(path string, perms *types.Perms) error {
	p := vpath.New(path)
	built := vpath.New("/")
	for _, comp := range p.Components() {
		if comp.Kind != vpath.Normal {
			continue
		}
		built = built.Join(vpath.New(comp.Name))
		if err := fs.Mkdir(built.String(), perms); err != nil {
			if !bijouerr.Is(err, bijouerr.AlreadyExists) {
				return err
			}
		}
	}
	return nil
}

// Remove unlinks the file, or removes the (necessarily empty) directory,
// named by path.
func (fs *FS) Remove(path string) error {
	parent, name, err := resolveParent(fs.v, path)
	if err != nil {
		return err
	}
	if name == "" {
		return bijouerr.New(bijouerr.InvalidInput, "remove: path names the root")
	}
	item, err := fs.v.Lookup(parent, name)
	if err != nil {
		return err
	}
	if item.Kind == types.Directory {
		return fs.v.Rmdir(parent, name)
	}
	_, err = fs.v.Unlink(parent, name)
	return err
}

// Rename moves oldpath to newpath, overwriting newpath if it already exists.
func (fs *FS) Rename(oldpath, newpath string) error {
	p, n, err := resolveParent(fs.v, oldpath)
	if err != nil {
		return err
	}
	pp, nn, err := resolveParent(fs.v, newpath)
	if err != nil {
		return err
	}
	return fs.v.Rename(p, n, pp, nn)
}

// Link creates newpath as a hard link to oldpath.
func (fs *FS) Link(oldpath, newpath string) error {
	existing, err := resolve(fs.v, oldpath)
	if err != nil {
		return err
	}
	parent, name, err := resolveParent(fs.v, newpath)
	if err != nil {
		return err
	}
	return fs.v.Link(existing, parent, name)
}

// Symlink creates linkpath as a symlink pointing at target. target is
// stored verbatim and is not itself resolved.
func (fs *FS) Symlink(target, linkpath string) error {
	parent, name, err := resolveParent(fs.v, linkpath)
	if err != nil {
		return err
	}
	_, err = fs.v.Symlink(parent, name, target, nil)
	return err
}

// Readlink resolves path (without following a trailing symlink) and
// returns its target.
func (fs *FS) Readlink(path string) (string, error) {
	parent, name, err := resolveParent(fs.v, path)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", bijouerr.New(bijouerr.InvalidInput, "readlink: path names the root")
	}
	item, err := fs.v.Lookup(parent, name)
	if err != nil {
		return "", err
	}
	return fs.v.Readlink(item.ID)
}

// ReadDir lists path's directory entries.
func (fs *FS) ReadDir(path string) ([]bijou.DirEntry, error) {
	id, err := resolve(fs.v, path)
	if err != nil {
		return nil, err
	}
	return fs.v.Readdir(id)
}

// GetXattr, SetXattr, RemoveXattr and ListXattr resolve path and delegate
// to the underlying vault.
func (fs *FS) GetXattr(path, name string) ([]byte, error) {
	id, err := resolve(fs.v, path)
	if err != nil {
		return nil, err
	}
	return fs.v.GetXattr(id, name)
}

func (fs *FS) SetXattr(path, name string, value []byte) error {
	id, err := resolve(fs.v, path)
	if err != nil {
		return err
	}
	return fs.v.SetXattr(id, name, value)
}

func (fs *FS) RemoveXattr(path, name string) error {
	id, err := resolve(fs.v, path)
	if err != nil {
		return err
	}
	return fs.v.RemoveXattr(id, name)
}

func (fs *FS) ListXattr(path string) ([]string, error) {
	id, err := resolve(fs.v, path)
	if err != nil {
		return nil, err
	}
	return fs.v.ListXattr(id)
}

// flagsToOpenOptions translates os.O_* flag bits to bijou.OpenOptions, the
// same vocabulary open_file (§6) expects.
func flagsToOpenOptions(flag int) bijou.OpenOptions {
	var opts bijou.OpenOptions
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		opts.Write = true
	case os.O_RDWR:
		opts.Read = true
		opts.Write = true
	default:
		opts.Read = true
	}
	if flag&os.O_APPEND != 0 {
		opts.Append = true
		opts.Write = true
	}
	if flag&os.O_TRUNC != 0 {
		opts.Truncate = true
		opts.Write = true
	}
	if flag&os.O_EXCL != 0 {
		opts.CreateNew = true
	} else if flag&os.O_CREATE != 0 {
		opts.Create = true
	}
	return opts
}

// OpenFile opens or creates path per the os.O_* flag bits in flag, in the
// manner of os.OpenFile.
func (fs *FS) OpenFile(path string, flag int, perms *types.Perms) (*File, error) {
	parent, name, err := resolveParent(fs.v, path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, bijouerr.New(bijouerr.InvalidInput, "open: path names the root")
	}
	h, err := fs.v.OpenFile(parent, name, flagsToOpenOptions(flag), perms)
	if err != nil {
		return nil, err
	}
	f := &File{v: fs.v, h: h}
	if flag&os.O_APPEND != 0 {
		info, err := fs.v.GetAttr(h.ID())
		if err != nil {
			h.Release()
			return nil, err
		}
		f.pos = info.Size
		f.appendMode = true
	}
	return f, nil
}

// Open opens path for reading only, in the manner of os.Open.
func (fs *FS) Open(path string) (*File, error) {
	return fs.OpenFile(path, os.O_RDONLY, nil)
}

// Create creates or truncates path for reading and writing, in the manner
// of os.Create.
func (fs *FS) Create(path string, perms *types.Perms) (*File, error) {
	return fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perms)
}

// File is an open regular-file handle presenting the standard
// io.ReadWriteSeeker/io.Closer surface over a bijou.Handle. The vault's
// block pipeline is offset-addressed and stateless; File is what adds a
// cursor (and, in append mode, pins writes to the current end of file).
type File struct {
	v          *bijou.Vault
	h          *bijou.Handle
	pos        uint64
	appendMode bool
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.h.Read(p, f.pos)
	f.pos += uint64(n)
	if err != nil {
		return n, err
	}
	if n < len(p) && len(p) > 0 {
		return n, io.EOF
	}
	return n, nil
}

// Write implements io.Writer. In append mode, writes always land at the
// current end of file regardless of the cursor set by Seek.
func (f *File) Write(p []byte) (int, error) {
	offset := f.pos
	if f.appendMode {
		info, err := f.v.GetAttr(f.h.ID())
		if err != nil {
			return 0, err
		}
		offset = info.Size
	}
	n, err := f.h.Write(p, offset)
	f.pos = offset + uint64(n)
	return n, err
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base uint64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		info, err := f.v.GetAttr(f.h.ID())
		if err != nil {
			return 0, err
		}
		base = info.Size
	default:
		return 0, bijouerr.New(bijouerr.InvalidInput, "seek: invalid whence")
	}
	next := int64(base) + offset
	if next < 0 {
		return 0, bijouerr.New(bijouerr.InvalidInput, "seek: negative position")
	}
	f.pos = uint64(next)
	return next, nil
}

// Truncate resizes the file's content to size.
func (f *File) Truncate(size uint64) error {
	return f.h.SetLen(size)
}

// Close releases the handle.
func (f *File) Close() error {
	return f.h.Release()
}
