package commands

import (
	"strconv"
	"strings"

	"clubworx-backend/internal/scrapers/clubworx"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	membersPage   *int
	membersCount  *int
	membersSearch *string
)

func init() {
	membersPage = membersCmd.Flags().Int("page", 1, "The page of members to list.")
	membersCount = membersCmd.Flags().Int("count", 100, "The number of members per page.")
	membersSearch = membersCmd.Flags().String("search", "", "Only list members matching this term.")
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(memberCmd)
}

func displayName(m clubworx.Member) string {
	if m.Name != "" {
		return m.Name
	}
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

func displayStanding(m clubworx.Member) string {
	if m.GoodStanding == nil {
		return ""
	}
	return strconv.FormatBool(*m.GoodStanding)
}

var membersCmd = &cobra.Command{
	Use:   "members [--page <n>] [--count <n>] [--search <term>]",
	Short: "Lists members of the gym.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var members []clubworx.Member
		err := withSession(cmd.Context(), func(session *clubworx.Session) error {
			var err error
			members, err = session.Members(cmd.Context(), clubworx.MemberOptions{
				Page:   *membersPage,
				Count:  *membersCount,
				Search: *membersSearch,
			})
			return err
		})
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"ID", "Name", "Email", "Phone", "Status", "Good standing"})
		for _, m := range members {
			t.AppendRow(table.Row{m.ID, displayName(m), m.Email, m.Phone, m.Status, displayStanding(m)})
		}
		t.Render()
		return nil
	},
}

var memberCmd = &cobra.Command{
	Use:   "member <id>",
	Short: "Shows a single member.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var member clubworx.Member
		err := withSession(cmd.Context(), func(session *clubworx.Session) error {
			var err error
			member, err = session.MemberByID(cmd.Context(), clubworx.ID(args[0]))
			return err
		})
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendRows([]table.Row{
			{"ID", member.ID},
			{"Name", displayName(member)},
			{"Email", member.Email},
			{"Phone", member.Phone},
			{"Status", member.Status},
			{"Good standing", displayStanding(member)},
			{"Image", member.ImageUrl},
		})
		t.Render()
		return nil
	},
}
