// Package commands implements the bijou CLI's vault lifecycle commands.
package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/bijoufs/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bijou",
	Short: "Bijou - an encrypted user-space filesystem",
	Long: `Bijou is an encrypted user-space filesystem: a POSIX-style hierarchical
namespace with encrypted contents, metadata and filenames, backed by a
KV-store inode table and a pluggable object store for file data.

This CLI covers vault lifecycle only (init, status, fsck); mounting a
vault into a host filesystem is a separate concern left to the bridge
a caller wires against pkg/bijou.Bridge.

Use "bijou [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := InitLogger(cfg); err != nil {
			return err
		}
		loadedConfig = cfg
		return nil
	},
}

// loadedConfig is the operational config loaded by PersistentPreRunE,
// available to subcommands for defaults (e.g. whether metrics are enabled).
var loadedConfig *config.Config

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/bijou/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fsckCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
