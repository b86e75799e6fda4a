package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/internal/wsplayctl/util"
	"github.com/wrale/wsplay/internal/wsplayd/resolver"
)

const dateLayout = "2006-01-02"

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		date     string
		override string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which playlist a center plays on a date",
		Long: `Run the playlist resolution a screen performs at startup against the
configuration API: a manual override wins when it exists and is active,
otherwise the active weekday playlist named after the day is chosen. Weekends
resolve to no playlist, which puts screens in standby.`,
		Example: `  # Today's playlist for the current context's center
  wsplayctl resolve

  # A given Monday, in English playlist names
  wsplayctl resolve --date 2024-01-08 --locale en --center 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.currentContext()
			if err != nil {
				return err
			}
			if ctx.Center == "" {
				return fmt.Errorf("no center configured - pass --center or configure a context")
			}

			day := time.Now()
			if date != "" {
				day, err = time.ParseInLocation(dateLayout, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
				}
			}

			api, err := util.GetAPIClient(ctx)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if opts.debug {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
			r, err := resolver.New(api, ctx.Locale, logger)
			if err != nil {
				return err
			}

			playlistID, err := r.Resolve(cmd.Context(), ctx.Center, day, override)
			if err != nil {
				return fmt.Errorf("error resolving playlist: %w", err)
			}

			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()

			fmt.Fprintf(tw, "DATE\tDAY\tEXPECTED NAME\tPLAYLIST\n")
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				day.Format(dateLayout),
				day.Weekday(),
				util.ValueOr(resolver.WeekdayName(ctx.Locale, day.Weekday()), "-"),
				util.ValueOr(playlistID, "none (standby)"))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to resolve (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&override, "override", "", "Manual playlist override ID")

	return cmd
}
