package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesync/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials stored in the OS keyring",
	Long: fmt.Sprintf(`Store or remove credentials in the OS keyring. They are used when a
connection string or API key is set neither in the config file nor in the
environment.

Secret names:
  %-22s - raw SAP store, and the warehouse when no dedicated one is set
  %-22s - search service endpoint URL
  %-22s - search service admin API key`,
		secrets.SecretConnection, secrets.SecretSearchEndpoint, secrets.SecretSearchKey),
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store a secret",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyringVault().Set(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Stored secret %s\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyringVault().Delete(args[0]); err != nil {
			return err
		}
		cmd.Printf("Removed secret %s\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

func keyringVault() secrets.KeyringVault {
	return secrets.KeyringVault{Service: cfg.Secrets.KeyringService}
}
