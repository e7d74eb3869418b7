package main

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

// Accepted --time layouts, tried in order
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func newEncodeCmd() *cobra.Command {
	var (
		at string
		tz string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the time code of one minute",
		Long:  "Print the 60 slots of the minute containing --time (default: now) in the --tz timezone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", tz, err)
			}

			t := time.Now().In(loc)
			if at != "" {
				if t, err = parseTime(at, loc); err != nil {
					return err
				}
			}

			frame, err := jjy.EncodeMinute(t)
			if err != nil {
				return fmt.Errorf("encode %s: %w", t.Format(time.RFC3339), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", frame.Start.Format("2006-01-02 15:04 MST Mon"))
			fmt.Fprint(out, frame.Table())
			fmt.Fprintf(out, "bits: %s\n", frame.Bits())
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "time", "", "Time to encode, e.g. 2004-04-01 17:25 (default now)")
	cmd.Flags().StringVar(&tz, "tz", "Asia/Tokyo", "Timezone the time code is expressed in")
	return cmd
}

// parseTime reads s in loc unless it carries its own offset
func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
