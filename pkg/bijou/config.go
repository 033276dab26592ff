package bijou

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/marmos91/bijoufs/pkg/crypto/blockalgo"
)

const configFileName = "config.json"

const configVersion = 1

const configAEADKeySize = crypto.PwHashKeySize
const configAEADNonceSize = 24

// StorageConfig is the nested storage variant of §3's persisted config:
// which raw backend to build, and how to compose it with Split/Tracking.
type StorageConfig struct {
	// Backend selects the terminal object store: "local" or "s3".
	Backend string `json:"backend"`

	// ClusterSize, when > 0, wraps the terminal backend in Split with
	// this many blocks per cluster.
	ClusterSize int `json:"clusterSize,omitempty"`

	S3 *S3StorageConfig `json:"s3,omitempty"`
}

// S3StorageConfig mirrors pkg/rawfs/s3.Config for persistence.
type S3StorageConfig struct {
	Bucket         string `json:"bucket"`
	Region         string `json:"region,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	KeyPrefix      string `json:"keyPrefix,omitempty"`
	ForcePathStyle bool   `json:"forcePathStyle,omitempty"`
}

// Config is the vault's sealed configuration (§3), persisted as
// config.json = nonce || ciphertext(JSON) || tag under subkey 0.
type Config struct {
	Version         int             `json:"version"`
	FileEncryption  blockalgo.Name  `json:"fileEncryption"`
	BlockSize       int             `json:"blockSize"`
	EncryptDb       bool            `json:"encryptDb"`
	EncryptFileName bool            `json:"encryptFileName"`
	UnixPerms       bool            `json:"unixPerms"`
	Storage         StorageConfig   `json:"storage"`
}

// DefaultConfig returns a sensible new-vault configuration backed by a
// local store, with no clustering, filename encryption on and DB
// encryption off.
func DefaultConfig(dataDir string) Config {
	return Config{
		Version:         configVersion,
		FileEncryption:  blockalgo.XChaCha20Poly1305N,
		BlockSize:       4096,
		EncryptDb:       false,
		EncryptFileName: true,
		UnixPerms:       true,
		Storage:         StorageConfig{Backend: "local"},
	}
}

func configPath(dir string) string {
	return filepath.Join(dir, configFileName)
}

// sealConfig encrypts cfg under the config subkey and writes it to dir.
func sealConfig(dir string, cfg Config, configKey []byte) error {
	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return bijouerr.Wrap(bijouerr.DBError, "failed to encode config", err)
	}

	aead, err := crypto.NewXChaCha20Poly1305(configKey)
	if err != nil {
		return err
	}
	nonce, err := crypto.RandomNonzeroNonce(configAEADNonceSize)
	if err != nil {
		return err
	}
	ciphertext, tag := crypto.SealDetached(aead, nonce, nil, plaintext)

	blob := make([]byte, 0, len(nonce)+len(ciphertext)+len(tag))
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	blob = append(blob, tag...)

	if err := os.WriteFile(configPath(dir), blob, 0o600); err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "failed to write config", err)
	}
	return nil
}

// openConfig reads and decrypts dir's config.json under the config subkey.
func openConfig(dir string, configKey []byte) (Config, error) {
	blob, err := os.ReadFile(configPath(dir))
	if err != nil {
		return Config{}, bijouerr.Wrap(bijouerr.IOError, "failed to read config", err)
	}

	aead, err := crypto.NewXChaCha20Poly1305(configKey)
	if err != nil {
		return Config{}, err
	}
	if len(blob) < configAEADNonceSize+16 {
		return Config{}, bijouerr.New(bijouerr.CryptoError, "config blob too short")
	}
	nonce := blob[:configAEADNonceSize]
	tagStart := len(blob) - 16
	ciphertext := blob[configAEADNonceSize:tagStart]
	tag := blob[tagStart:]

	plaintext, err := crypto.OpenDetached(aead, nonce, nil, ciphertext, tag)
	if err != nil {
		return Config{}, bijouerr.New(bijouerr.CryptoError, "failed to decrypt config")
	}

	var cfg Config
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return Config{}, bijouerr.Wrap(bijouerr.DBError, "failed to decode config", err)
	}
	if cfg.Version != configVersion {
		return Config{}, bijouerr.New(bijouerr.IncompatibleVersion, "unsupported config version")
	}
	return cfg, nil
}
