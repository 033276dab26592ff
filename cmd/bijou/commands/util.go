package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/marmos91/bijoufs/internal/logger"
	"github.com/marmos91/bijoufs/pkg/config"
	"github.com/marmos91/bijoufs/pkg/secretbuf"
	"golang.org/x/term"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// PromptPassphrase prompts for a vault passphrase without echoing it,
// falling back to a plain line read when stdin isn't a terminal (piped
// input in scripts/tests).
func PromptPassphrase(prompt string) (*secretbuf.Buffer, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return nil, err
		}
		return secretbuf.FromSlice(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return secretbuf.FromSlice([]byte(strings.TrimSuffix(line, "\n"))), nil
}
