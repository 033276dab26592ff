package bijou

import (
	"encoding/binary"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/crypto/blockalgo"
)

// dotName and dotdotName are left in plaintext even when filename
// encryption is enabled (§4.10): "." and ".." are special constants,
// not user-chosen names, so encrypting them would gain nothing and
// would complicate the fixed root bootstrap.
const (
	dotName    = "."
	dotdotName = ".."
)

// nameCodec turns a plaintext child name into the bytes a directory
// entry is keyed under, and back. When filename encryption is disabled,
// it is the identity. Grounded on §4.10's "parent FileId as associated
// data" requirement for the SIV construction.
type nameCodec struct {
	siv *blockalgo.SIV // nil when filename encryption is disabled
}

func newNameCodec(siv *blockalgo.SIV) *nameCodec {
	return &nameCodec{siv: siv}
}

func parentAD(parent types.FileId) []byte {
	var ad [8]byte
	binary.LittleEndian.PutUint64(ad[:], uint64(parent))
	return ad[:]
}

// encode returns the key bytes name should be stored/looked-up under
// within parent's directory-entry namespace.
func (c *nameCodec) encode(parent types.FileId, name string) ([]byte, error) {
	if name == dotName || name == dotdotName || c.siv == nil {
		return []byte(name), nil
	}
	ciphertext, tag, err := c.siv.Encrypt(parentAD(parent), []byte(name))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ciphertext)+len(tag))
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}

// decode recovers the plaintext name from a directory-entry key's
// suffix bytes (as returned by dirEntryNameFromKey). It cannot
// distinguish "." and ".." ciphertext from plaintext by length alone
// when encryption is off, since in that mode the suffix already is the
// plaintext name.
func (c *nameCodec) decode(parent types.FileId, suffix []byte) (string, error) {
	s := string(suffix)
	if s == dotName || s == dotdotName || c.siv == nil {
		return s, nil
	}
	if len(suffix) < blockalgo.SIVTagSize {
		return "", bijouerr.New(bijouerr.CryptoError, "corrupt directory entry: too short for siv tag")
	}
	tagStart := len(suffix) - blockalgo.SIVTagSize
	ciphertext := suffix[:tagStart]
	tag := suffix[tagStart:]
	plaintext, err := c.siv.Decrypt(parentAD(parent), ciphertext, tag)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
