package bijou

import (
	"github.com/marmos91/bijoufs/pkg/bijou/types"
)

// GetXattr returns the value stored for name on id.
func (v *Vault) GetXattr(id types.FileId, name string) ([]byte, error) {
	return v.kv.Get(xattrKey(id, name))
}

// SetXattr sets name's value on id, creating or overwriting it.
func (v *Vault) SetXattr(id types.FileId, name string, value []byte) error {
	return v.kv.Put(xattrKey(id, name), value)
}

// RemoveXattr deletes name from id. Not an error if absent.
func (v *Vault) RemoveXattr(id types.FileId, name string) error {
	return v.kv.Delete(xattrKey(id, name))
}

// ListXattr returns the names of every extended attribute set on id.
func (v *Vault) ListXattr(id types.FileId) ([]string, error) {
	lower, upper := xattrRange(id)
	it, err := v.kv.Range(lower, upper)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var names []string
	for it.Next() {
		names = append(names, xattrNameFromKey(it.Key()))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
