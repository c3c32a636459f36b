package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/instructor/cli/keystore"
)

func (a *App) newKeysCommand() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage API keys in the encrypted keystore (~/.instructor/keys.enc).
Environment variables take precedence over stored keys.`,
	}
	keys.AddCommand(&cobra.Command{
		Use:   "set <transport>",
		Short: "Store the API key for a transport",
		Long:  "Store the API key for a transport. On a terminal the key is read without echo.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeysSet(args[0])
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List transports with a stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeysList()
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "delete <transport>",
		Short: "Delete the stored key for a transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeysDelete(args[0])
		},
	})
	return keys
}

func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) runKeysSet(name string) error {
	key, err := a.readSecret(fmt.Sprintf("API key for %s: ", name))
	if err != nil {
		return exitWithCode(ExitValidation, fmt.Errorf("read key: %w", err))
	}
	if key == "" {
		return exitWithCode(ExitValidation, errors.New("API key cannot be empty"))
	}

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	if err := ks.Set(name, key); err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	fmt.Fprintf(a.stdout, "API key for %s stored.\n", name)
	return nil
}

func (a *App) runKeysList() error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(a.stdout, n)
	}
	return nil
}

func (a *App) runKeysDelete(name string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}
	if err := ks.Delete(name); err != nil {
		var nf *keystore.ErrKeyNotFound
		if errors.As(err, &nf) {
			return exitWithCode(ExitValidation, fmt.Errorf("no key stored for %s", name))
		}
		return fmt.Errorf("delete key: %w", err)
	}
	fmt.Fprintf(a.stdout, "API key for %s deleted.\n", name)
	return nil
}
