package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stockscan/cli/internal/config"
	"github.com/stockscan/cli/pkg/util"
)

// KeyStore defines where the pre-shared key is kept.
type KeyStore interface {
	Load() (string, error)
	Save(key string) error
	Delete() error
}

type keyringStore struct{}

func (keyringStore) Load() (string, error) { return config.LoadKey() }
func (keyringStore) Save(key string) error { return config.SaveKey(key) }
func (keyringStore) Delete() error         { return config.DeleteKey() }

// AuthCmd manages the pre-shared key.
type AuthCmd struct {
	store KeyStore
}

// SetKeyInput holds input for storing a key.
type SetKeyInput struct {
	Key string
}

// SetKey stores the key in the keyring.
func (a AuthCmd) SetKey(in SetKeyInput) error {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return fmt.Errorf("no key provided")
	}
	if err := a.store.Save(key); err != nil {
		return err
	}
	pterm.Success.Printf("Stored key %s in the OS keyring\n", util.MaskSecret(key))
	return nil
}

// ClearKey removes the stored key.
func (a AuthCmd) ClearKey() error {
	if err := a.store.Delete(); err != nil {
		return err
	}
	pterm.Success.Println("Removed key from the OS keyring")
	return nil
}

// ShowKey prints the stored key, masked.
func (a AuthCmd) ShowKey() error {
	key, err := a.store.Load()
	if errors.Is(err, config.ErrNoKey) {
		pterm.Info.Println("No key stored. Use 'stockscan auth set-key' or set STOCKSCAN_KEY.")
		return nil
	}
	if err != nil {
		return err
	}
	pterm.Info.Printf("Stored key: %s\n", util.MaskSecret(key))
	return nil
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the pre-shared key sent to the analysis service",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var authSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the pre-shared key in the OS keyring",
	Long: `Store the pre-shared key in the OS keyring. The key is read from stdin when
input is piped, otherwise you are prompted for it.`,
	Example: `  stockscan auth set-key
  printf '%s' "$KEY" | stockscan auth set-key`,
	Args: cobra.NoArgs,
	RunE: runAuthSetKey,
}

var authClearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the pre-shared key from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return AuthCmd{store: keyringStore{}}.ClearKey()
	},
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored pre-shared key (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return AuthCmd{store: keyringStore{}}.ShowKey()
	},
}

func init() {
	authCmd.AddCommand(authSetKeyCmd)
	authCmd.AddCommand(authClearKeyCmd)
	authCmd.AddCommand(authShowCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSetKey(cmd *cobra.Command, args []string) error {
	var key string

	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		content, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		key = string(content)
	} else {
		input, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Pre-shared key")
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = input
	}

	return AuthCmd{store: keyringStore{}}.SetKey(SetKeyInput{Key: key})
}
