// Package bijou implements the inode layer (C10): vault lifecycle
// (keystore, sealed config, KV store, raw backend), directory entries
// with optional name encryption, hard-link-aware make_node/link/unlink/
// rename, path resolution with symlink-loop detection, xattrs, and
// open_file backed by the block pipeline (pkg/blockio). Uses the usual
// get/decode/mutate/encode/commit shape for a KV-backed metadata store,
// adapted from a generic id-keyed, protocol-agnostic model to this
// vault's FileId/FileMeta/DirItem model, adding name encryption and
// hard-link semantics the generic model doesn't need.
package bijou

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marmos91/bijoufs/pkg/bijou/bijouerr"
	"github.com/marmos91/bijoufs/pkg/bijou/types"
	"github.com/marmos91/bijoufs/pkg/blockio"
	"github.com/marmos91/bijoufs/pkg/crypto"
	"github.com/marmos91/bijoufs/pkg/crypto/blockalgo"
	"github.com/marmos91/bijoufs/pkg/idlock"
	"github.com/marmos91/bijoufs/pkg/kv"
	bdgkv "github.com/marmos91/bijoufs/pkg/kv/badger"
	"github.com/marmos91/bijoufs/pkg/kv/encrypted"
	"github.com/marmos91/bijoufs/pkg/rawfs"
	"github.com/marmos91/bijoufs/pkg/rawfs/local"
	rawfss3 "github.com/marmos91/bijoufs/pkg/rawfs/s3"
	"github.com/marmos91/bijoufs/pkg/rawfs/split"
	"github.com/marmos91/bijoufs/pkg/rawfs/tracking"
	"github.com/marmos91/bijoufs/pkg/secretbuf"
)

const dataDirName = "data"
const dbDirName = "db"

// Vault is one open Bijou instance: the KV store, raw backend, derived
// keys, and the per-id lock tables the inode layer and block pipeline
// serialize through.
type Vault struct {
	dir    string
	config Config

	kv  kv.Store
	raw rawfs.FileSystem

	contentRoot []byte // SubkeyContentRoot: HKDF-equivalent root for per-file content keys
	names       *nameCodec

	dirLocks   *idlock.Table[types.FileId]
	blockLocks *idlock.Table[types.FileId]
	counters   *blockio.Counters

	algo blockalgo.Algorithm

	master *secretbuf.Buffer
}

// Create initializes a brand-new vault at dir (which must be empty or
// not yet exist), sealing cfg under a freshly generated master key
// wrapped by passphrase, and returns it opened.
func Create(dir string, passphrase *secretbuf.Buffer, cfg Config) (*Vault, error) {
	if err := requireEmptyOrAbsent(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, bijouerr.Wrap(bijouerr.IOError, "failed to create vault directory", err)
	}

	master, err := createKeystore(dir, passphrase)
	if err != nil {
		return nil, err
	}

	configKey, err := crypto.DeriveSubkey(master.Bytes(), crypto.Context, crypto.SubkeyConfig, configAEADKeySize)
	if err != nil {
		master.Destroy()
		return nil, err
	}
	defer secretbuf.Zero(configKey)

	if err := sealConfig(dir, cfg, configKey); err != nil {
		master.Destroy()
		return nil, err
	}

	return open(dir, master, cfg)
}

// Open unwraps an existing vault's master key with passphrase, decrypts
// its config, and wires up the KV store and raw backend.
func Open(dir string, passphrase *secretbuf.Buffer) (*Vault, error) {
	if !keystoreExists(dir) {
		return nil, bijouerr.New(bijouerr.NotFound, "no keystore found at vault path")
	}

	master, err := openKeystore(dir, passphrase)
	if err != nil {
		return nil, err
	}

	configKey, err := crypto.DeriveSubkey(master.Bytes(), crypto.Context, crypto.SubkeyConfig, configAEADKeySize)
	if err != nil {
		master.Destroy()
		return nil, err
	}
	defer secretbuf.Zero(configKey)

	cfg, err := openConfig(dir, configKey)
	if err != nil {
		master.Destroy()
		return nil, err
	}

	return open(dir, master, cfg)
}

func open(dir string, master *secretbuf.Buffer, cfg Config) (*Vault, error) {
	algo, err := blockalgo.New(cfg.FileEncryption, cfg.BlockSize)
	if err != nil {
		master.Destroy()
		return nil, err
	}

	contentRoot, err := crypto.DeriveSubkey(master.Bytes(), crypto.Context, crypto.SubkeyContentRoot, 32)
	if err != nil {
		master.Destroy()
		return nil, err
	}

	var siv *blockalgo.SIV
	if cfg.EncryptFileName {
		nameKey, err := crypto.DeriveSubkey(master.Bytes(), crypto.Context, crypto.SubkeyFilename, 32)
		if err != nil {
			master.Destroy()
			return nil, err
		}
		siv, err = blockalgo.NewSIV(nameKey)
		secretbuf.Zero(nameKey)
		if err != nil {
			master.Destroy()
			return nil, err
		}
	}

	store, err := buildKVStore(dir, master, cfg)
	if err != nil {
		master.Destroy()
		return nil, err
	}

	raw, err := buildRawBackend(dir, store, cfg.Storage, algo.Sizes().BlockSize())
	if err != nil {
		store.Close()
		master.Destroy()
		return nil, err
	}

	v := &Vault{
		dir:         dir,
		config:      cfg,
		kv:          store,
		raw:         raw,
		contentRoot: contentRoot,
		names:       newNameCodec(siv),
		dirLocks:    idlock.New[types.FileId](),
		blockLocks:  idlock.New[types.FileId](),
		counters:    blockio.NewCounters(),
		algo:        algo,
		master:      master,
	}

	if err := v.ensureRoot(); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func buildKVStore(dir string, master *secretbuf.Buffer, cfg Config) (kv.Store, error) {
	store, err := bdgkv.Open(filepath.Join(dir, dbDirName))
	if err != nil {
		return nil, err
	}
	if !cfg.EncryptDb {
		return store, nil
	}

	pageKey, err := crypto.DeriveSubkey(master.Bytes(), crypto.Context, crypto.SubkeyDBPage, crypto.XSalsa20KeySize)
	if err != nil {
		store.Close()
		return nil, err
	}
	defer secretbuf.Zero(pageKey)

	encStore, err := encrypted.New(store, pageKey)
	if err != nil {
		store.Close()
		return nil, err
	}
	return encStore, nil
}

func buildRawBackend(dir string, store kv.Store, cfg StorageConfig, blockSize int) (rawfs.FileSystem, error) {
	var backend rawfs.FileSystem
	var err error

	switch cfg.Backend {
	case "", "local":
		backend, err = local.New(filepath.Join(dir, dataDirName))
		if err != nil {
			return nil, err
		}
	case "s3":
		if cfg.S3 == nil {
			return nil, bijouerr.New(bijouerr.InvalidInput, "s3 storage backend requires s3 config")
		}
		s3Backend, err := newS3Backend(*cfg.S3)
		if err != nil {
			return nil, err
		}
		backend = tracking.New(s3Backend, store)
	default:
		return nil, bijouerr.New(bijouerr.InvalidInput, "unknown storage backend: "+cfg.Backend)
	}

	if cfg.ClusterSize > 0 {
		tracked := tracking.New(backend, store)
		backend = split.New(tracked, store, cfg.ClusterSize, blockSize)
	}
	return backend, nil
}

func newS3Backend(cfg S3StorageConfig) (*rawfss3.FileSystem, error) {
	fs, err := rawfss3.NewFromConfig(context.Background(), rawfss3.Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		KeyPrefix:      cfg.KeyPrefix,
		ForcePathStyle: cfg.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// Close releases the vault's KV store and raw backend, and destroys the
// in-memory master key.
func (v *Vault) Close() error {
	var firstErr error
	if v.raw != nil {
		if err := v.raw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if v.kv != nil {
		if err := v.kv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if v.master != nil {
		v.master.Destroy()
	}
	return firstErr
}

func requireEmptyOrAbsent(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return bijouerr.Wrap(bijouerr.IOError, "failed to inspect vault directory", err)
	}
	if len(entries) > 0 {
		return bijouerr.New(bijouerr.AlreadyExists, "vault directory is not empty")
	}
	return nil
}

// contentKeyFor derives the per-file content key for id (§4.10).
func (v *Vault) contentKeyFor(id types.FileId) ([]byte, error) {
	return crypto.ContentKey(v.contentRoot, uint64(id), v.algo.KeySize())
}
