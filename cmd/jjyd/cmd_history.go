package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dbehnke/jjyd/internal/config"
	"github.com/dbehnke/jjyd/internal/database"
)

func newHistoryCmd(configFile *string) *cobra.Command {
	var (
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently transmitted minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewConfig(*configFile)
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if !cfg.GetDatabaseEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "history disabled (database.enabled is false)")
				return nil
			}

			db, err := database.NewDB(database.Config{Path: cfg.GetDatabasePath()}, zerolog.Nop())
			if err != nil {
				return fmt.Errorf("open history database: %w", err)
			}
			defer db.Close()

			return printHistory(cmd, database.NewFrameRepository(db.GetDB()), limit, session)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of minutes to list")
	cmd.Flags().StringVar(&session, "session", "", "List every minute of one run instead")
	return cmd
}

func printHistory(cmd *cobra.Command, repo *database.FrameRepository, limit int, session string) error {
	var (
		records []database.FrameRecord
		err     error
	)
	if session != "" {
		records, err = repo.ListSession(session)
	} else {
		records, err = repo.ListRecent(limit)
	}
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	stats, err := repo.GetStatistics()
	if err != nil {
		return fmt.Errorf("history statistics: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "no frames recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MINUTE\tSENT\tBITS\tSESSION")
	for _, r := range records {
		minute := r.MinuteStart
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			minute = minute.In(loc)
		}
		status := humanize.Time(r.MinuteStart)
		if !r.Complete {
			status += " (partial)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.8s\n", minute.Format("2006-01-02 15:04"), status, r.Bits, r.SessionID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total, _ := stats["total_frames"].(int64)
	partial, _ := stats["partial_frames"].(int64)
	sessions, _ := stats["sessions"].(int64)
	fmt.Fprintf(out, "%s of %s frames, %s partial, %s sessions",
		humanize.Comma(int64(len(records))), humanize.Comma(total),
		humanize.Comma(partial), humanize.Comma(sessions))
	if last, ok := stats["last_minute"].(time.Time); ok {
		fmt.Fprintf(out, ", last %s", humanize.Time(last))
	}
	fmt.Fprintln(out)
	return nil
}
