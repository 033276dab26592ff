package bijou

import (
	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/blockio"
	"github.com/marmos91/bijoufs/pkg/rawfs"
)

// OpenOptions mirrors §6's open flag set. Truncate requires Write;
// CreateNew fails if the target already exists.
type OpenOptions struct {
	Read      bool
	Write     bool
	Append    bool
	Truncate  bool
	Create    bool
	CreateNew bool
}

// Handle is an open regular-file handle, combining the block pipeline
// with the FileId it belongs to so Release can look up counters.
type Handle struct {
	id types.FileId
	bh *blockio.Handle
}

// ID returns the FileId this handle was opened against.
func (h *Handle) ID() types.FileId { return h.id }

// Read reads from the handle's current block-pipeline content at offset.
func (h *Handle) Read(buf []byte, offset uint64) (int, error) {
	return h.bh.Read(buf, offset)
}

// Write writes to the handle's content at offset.
func (h *Handle) Write(buf []byte, offset uint64) (int, error) {
	return h.bh.Write(buf, offset)
}

// SetLen truncates or extends the handle's content.
func (h *Handle) SetLen(newLen uint64) error {
	return h.bh.SetLen(newLen)
}

// Release closes the underlying block-pipeline handle.
func (h *Handle) Release() error {
	return h.bh.Close()
}

// OpenFile implements open_file (§4.10): resolves or creates the target
// regular file under parent, then materializes a block-pipeline handle
// over it.
func (v *Vault) OpenFile(parent types.FileId, name string, opts OpenOptions, perms *types.Perms) (*Handle, error) {
	if opts.Truncate && !opts.Write {
		return nil, bijouerr.New(bijouerr.InvalidInput, "truncate requires write")
	}

	item, lookupErr := v.Lookup(parent, name)
	switch {
	case lookupErr == nil:
		if opts.CreateNew {
			return nil, bijouerr.New(bijouerr.AlreadyExists, "create_new: target exists")
		}
		if item.Kind != types.File {
			return nil, bijouerr.New(bijouerr.InvalidInput, "open_file: target is not a regular file")
		}
	case bijouerr.Is(lookupErr, bijouerr.NotFound):
		if !opts.Create && !opts.CreateNew {
			return nil, lookupErr
		}
		meta, err := v.MakeNode(parent, name, types.File, "", perms)
		if err != nil {
			return nil, err
		}
		item = types.DirItem{ID: meta.ID, Kind: types.File}
	default:
		return nil, lookupErr
	}

	h, err := v.openHandle(item.ID, opts)
	if err != nil {
		return nil, err
	}
	if opts.Truncate {
		if err := h.SetLen(0); err != nil {
			h.Release()
			return nil, err
		}
	}
	return h, nil
}

func (v *Vault) openFlags(opts OpenOptions) rawfs.OpenFlag {
	var flags rawfs.OpenFlag
	if opts.Read {
		flags |= rawfs.Read
	}
	if opts.Write || opts.Truncate || opts.Append {
		flags |= rawfs.Write
	}
	return flags
}

func (v *Vault) openHandle(id types.FileId, opts OpenOptions) (*Handle, error) {
	flags := v.openFlags(opts)

	exists, err := v.raw.Exists(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := v.raw.Create(id); err != nil {
			return nil, err
		}
	}

	raw, err := v.raw.Open(id, flags)
	if err != nil {
		return nil, err
	}

	key, err := v.contentKeyFor(id)
	if err != nil {
		raw.Close()
		return nil, err
	}

	bh := blockio.Open(raw, id, v.algo, key, v.blockLocks, flags, v.counters)
	return &Handle{id: id, bh: bh}, nil
}

// truncateFile implements setattr's size field for regular files: open
// a write handle and delegate to the block pipeline's SetLen.
func (v *Vault) truncateFile(id types.FileId, newLen uint64) error {
	h, err := v.openHandle(id, OpenOptions{Write: true})
	if err != nil {
		return err
	}
	defer h.Release()
	return h.SetLen(newLen)
}
