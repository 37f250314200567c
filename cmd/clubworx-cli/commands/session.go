package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	sessionCmd.AddCommand(sessionExportCmd)
	sessionCmd.AddCommand(sessionImportCmd)
	sessionCmd.AddCommand(sessionForgetCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the stored session of the configured account.",
}

var sessionExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Prints the stored session as JSON.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := current.store.Get(cmd.Context(), current.config.Email)
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validates a session JSON file and stores it for the configured account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		session, err := current.client.FromJSON(contents)
		if err != nil {
			return err
		}

		err = current.cache.Forget(cmd.Context(), current.config.Email)
		if err != nil {
			return err
		}
		err = current.store.Put(cmd.Context(), current.config.Email, session.ToJSON())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported session for gym %s\n", session.GymID())
		return nil
	},
}

var sessionForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Deletes the stored session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.cache.Forget(cmd.Context(), current.config.Email)
	},
}
