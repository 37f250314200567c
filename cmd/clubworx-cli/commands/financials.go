package commands

import (
	"encoding/json"
	"fmt"

	"clubworx-backend/internal/scrapers/clubworx"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(financialsCmd)
}

var financialsCmd = &cobra.Command{
	Use:   "financials",
	Short: "Prints the gym's financial dashboard as JSON.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var financials clubworx.Financials
		err := withSession(cmd.Context(), func(session *clubworx.Session) error {
			var err error
			financials, err = session.Financials(cmd.Context())
			return err
		})
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(financials, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}
