package commands

import (
	"crypto/subtle"
	"fmt"

	"github.com/marmos91/bijoufs/pkg/bijou"
	"github.com/spf13/cobra"
)

var (
	initBlockSize   int
	initClusterSize int
	initEncryptDB   bool
	initNoEncryptFN bool
)

var initCmd = &cobra.Command{
	Use:   "init <vault-dir>",
	Short: "Create a new vault",
	Long: `Create a new Bijou vault at the given directory.

The directory must be empty or not yet exist.
You will be prompted for the vault's passphrase, which derives the
master key via Argon2id; there is no way to recover it if lost.

Examples:
  # Create a vault with default settings (local backend, no clustering)
  bijou init /srv/vaults/archive

  # Create a vault with a larger block size and clustered storage
  bijou init /srv/vaults/archive --block-size 16384 --cluster-size 8`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().IntVar(&initBlockSize, "block-size", 4096, "content block size in bytes")
	initCmd.Flags().IntVar(&initClusterSize, "cluster-size", 0, "blocks per cluster (0 disables clustering)")
	initCmd.Flags().BoolVar(&initEncryptDB, "encrypt-db", false, "encrypt the inode KV store's keys and values at rest")
	initCmd.Flags().BoolVar(&initNoEncryptFN, "no-encrypt-filenames", false, "store filenames in plaintext instead of SIV-encrypted")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := args[0]

	passphrase, err := PromptPassphrase("Passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	confirm, err := PromptPassphrase("Confirm passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer passphrase.Destroy()
	defer confirm.Destroy()

	if subtle.ConstantTimeCompare(passphrase.Bytes(), confirm.Bytes()) != 1 {
		return fmt.Errorf("passphrases do not match")
	}

	cfg := bijou.DefaultConfig(dir)
	cfg.BlockSize = initBlockSize
	cfg.Storage.ClusterSize = initClusterSize
	cfg.EncryptDb = initEncryptDB
	cfg.EncryptFileName = !initNoEncryptFN

	v, err := bijou.Create(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}
	defer v.Close()

	fmt.Printf("Vault created at: %s\n", dir)
	fmt.Printf("  block size:       %d bytes\n", cfg.BlockSize)
	fmt.Printf("  cluster size:     %d blocks\n", cfg.Storage.ClusterSize)
	fmt.Printf("  encrypted db:     %t\n", cfg.EncryptDb)
	fmt.Printf("  encrypted names:  %t\n", cfg.EncryptFileName)
	return nil
}
