package commands

import (
	"log/slog"

	"clubworx-backend/internal/components/chrono"
	"clubworx-backend/internal/components/telemetry"
	"clubworx-backend/internal/scrapers/clubworx"

	"github.com/spf13/cobra"
)

var keepaliveSchedule *string

func init() {
	keepaliveSchedule = keepaliveCmd.Flags().String("schedule", "@every 30m", "The cron spec to check the session on.")
	rootCmd.AddCommand(keepaliveCmd)
}

var keepaliveCmd = &cobra.Command{
	Use:   "keepalive [--schedule <cron spec>]",
	Short: "Periodically touches the stored session so it is replaced as soon as it expires.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		touch := func() {
			err := withSession(ctx, func(session *clubworx.Session) error {
				_, err := session.AllReports(ctx, clubworx.PageOptions{Count: 1})
				return err
			})
			if err != nil {
				slog.Error("keepalive failed", "err", err)
				return
			}
			slog.Info("session is alive")
		}

		clock, err := chrono.NewStandardImpl("")
		if err != nil {
			return err
		}
		cron := chrono.NewStandardCron(telemetry.SlogAPI{}, clock.Location())
		defer cron.Stop()

		err = cron.Cron(*keepaliveSchedule, touch)
		if err != nil {
			return err
		}
		touch()

		<-ctx.Done()
		return nil
	},
}
