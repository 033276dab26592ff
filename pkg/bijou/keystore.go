package bijou

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/marmos91/bijoufs/pkg/secretbuf"
)

const keystoreFileName = "keystore.json"

const keystoreVersion = 1

// masterKeySize is the length of the vault's master key M (§4.10).
const masterKeySize = 32

// masterKeyAEADKeySize/NonceSize describe the AEAD used to seal M under
// the passphrase-derived wrapping key: XChaCha20-Poly1305, matching the
// nonce size config.json's own seal uses. config.json is stored as one
// "nonce || ciphertext || tag" blob; the keystore instead stores M's
// nonce, tag and ciphertext as separate JSON fields.
const (
	masterKeyAEADKeySize   = crypto.PwHashKeySize
	masterKeyAEADNonceSize = 24
	masterKeyAEADTagSize   = 16
)

// vaultAD is the associated data bound to the sealed master key, per
// §4.10 ("sealed with AEAD under the wrapping key with associated-data
// \"bijou\"").
var vaultAD = []byte("bijou")

// keystore is the persisted keystore JSON (§3): everything needed to
// unwrap M given the right passphrase, plus the Argon2id parameters
// used to derive the wrapping key.
type keystore struct {
	Version   int    `json:"version"`
	Salt      []byte `json:"salt"`
	Nonce     []byte `json:"nonce"`
	Tag       []byte `json:"tag"`
	OpsLimit  uint32 `json:"opsLimit"`
	MemLimit  uint32 `json:"memLimit"`
	MasterKey []byte `json:"masterKey"` // encrypted
}

// defaultOpsLimit/MemLimit are Argon2id parameters for new vaults;
// existing vaults keep whatever was persisted at creation time.
const (
	defaultOpsLimit uint32 = 3
	defaultMemLimit uint32 = 64 * 1024 // KiB
)

func keystorePath(dir string) string {
	return filepath.Join(dir, keystoreFileName)
}

// createKeystore generates a fresh master key, seals it under a
// passphrase-derived wrapping key, and persists the keystore JSON to
// dir. Returns the unsealed master key so the caller can derive subkeys
// without re-reading the file.
func createKeystore(dir string, passphrase *secretbuf.Buffer) (*secretbuf.Buffer, error) {
	salt, err := crypto.RandomBytes(16)
	if err != nil {
		return nil, err
	}

	master := secretbuf.New(masterKeySize)
	raw, err := crypto.RandomBytes(masterKeySize)
	if err != nil {
		master.Destroy()
		return nil, err
	}
	copy(master.Mutable(), raw)
	secretbuf.Zero(raw)

	wrapKey := crypto.HashPassphrase(passphrase.Bytes(), salt, defaultOpsLimit, defaultMemLimit)
	defer secretbuf.Zero(wrapKey)

	aead, err := crypto.NewXChaCha20Poly1305(wrapKey)
	if err != nil {
		master.Destroy()
		return nil, err
	}
	nonce, err := crypto.RandomNonzeroNonce(masterKeyAEADNonceSize)
	if err != nil {
		master.Destroy()
		return nil, err
	}
	ciphertext, tag := crypto.SealDetached(aead, nonce, vaultAD, master.Bytes())

	ks := keystore{
		Version:   keystoreVersion,
		Salt:      salt,
		Nonce:     nonce,
		Tag:       tag,
		OpsLimit:  defaultOpsLimit,
		MemLimit:  defaultMemLimit,
		MasterKey: ciphertext,
	}
	if err := writeKeystore(dir, ks); err != nil {
		master.Destroy()
		return nil, err
	}
	return master, nil
}

// openKeystore reads dir's keystore JSON and unwraps M using passphrase.
func openKeystore(dir string, passphrase *secretbuf.Buffer) (*secretbuf.Buffer, error) {
	ks, err := readKeystore(dir)
	if err != nil {
		return nil, err
	}
	if ks.Version != keystoreVersion {
		return nil, bijouerr.New(bijouerr.IncompatibleVersion, "unsupported keystore version")
	}

	wrapKey := crypto.HashPassphrase(passphrase.Bytes(), ks.Salt, ks.OpsLimit, ks.MemLimit)
	defer secretbuf.Zero(wrapKey)

	aead, err := crypto.NewXChaCha20Poly1305(wrapKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.OpenDetached(aead, ks.Nonce, vaultAD, ks.MasterKey, ks.Tag)
	if err != nil {
		return nil, bijouerr.New(bijouerr.CryptoError, "incorrect passphrase or corrupt keystore")
	}

	master := secretbuf.FromSlice(plaintext)
	return master, nil
}

func readKeystore(dir string) (keystore, error) {
	raw, err := os.ReadFile(keystorePath(dir))
	if err != nil {
		return keystore{}, bijouerr.Wrap(bijouerr.IOError, "failed to read keystore", err)
	}
	var ks keystore
	if err := json.Unmarshal(raw, &ks); err != nil {
		return keystore{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode keystore", err)
	}
	return ks, nil
}

func writeKeystore(dir string, ks keystore) error {
	encoded, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "failed to encode keystore", err)
	}
	if err := os.WriteFile(keystorePath(dir), encoded, 0o600); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "failed to write keystore", err)
	}
	return nil
}

// keystoreExists reports whether dir already holds a keystore.json.
func keystoreExists(dir string) bool {
	_, err := os.Stat(keystorePath(dir))
	return err == nil
}
