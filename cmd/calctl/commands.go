package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the calendar file builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			def, err := calendar.BuildDefinition(cfg)
			if err != nil {
				return err
			}
			year := cfg.Year.Current
			return printOutput(cmd, map[string]any{
				"name":          cfg.Name,
				"months":        len(def.Months()),
				"weekdays":      len(def.Weekdays()),
				"moons":         len(def.Moons()),
				"seasons":       len(def.Seasons()),
				"year":          def.FormatYear(year),
				"days_in_year":  def.DaysInYear(year),
				"leap_year":     def.IsLeapYear(year),
				"seconds_a_day": def.SecondsPerDay(),
			})
		},
	}
}

func newConvertCmd() *cobra.Command {
	var export bool
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an imported calendar file to a calendar definition",
		Long:  "Reads Simple Calendar, Calendaria, Fantasy-Calendar or native exports and prints the calendar definition, or a native export with --export.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, res, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			def, err := calendar.BuildDefinition(cfg)
			if err != nil {
				return err
			}
			if res != nil && len(res.Notes) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d festival(s) found; import them through the notes API\n", len(res.Notes))
			}
			if !export {
				return printOutput(cmd, def.Config())
			}
			var now *int64
			if res != nil && res.Current != nil {
				secs, err := def.ToLinearSeconds(*res.Current)
				if err != nil {
					return err
				}
				now = &secs
			}
			out, err := calendar.BuildExport(def, now)
			if err != nil {
				return err
			}
			return printOutput(cmd, out)
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "print a native export instead of the bare definition")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate FILE",
		Short: "Upgrade a stored calendar record from an older release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rec, err := calendar.DecodeLegacy(data)
			if err != nil {
				return err
			}
			cfg, migrated, err := calendar.MigrateLegacy(rec)
			if err != nil {
				return err
			}
			if !migrated {
				fmt.Fprintln(cmd.ErrOrStderr(), "record is already current")
			}
			return printOutput(cmd, cfg)
		},
	}
}

func newToSecondsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-seconds DATE",
		Short: "Convert a date to linear seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			p, err := parseDate(args[0])
			if err != nil {
				return err
			}
			secs, err := e.ToLinearSeconds(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secs)
			return nil
		},
	}
}

func newFromSecondsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "from-seconds SECONDS",
		Short: "Convert linear seconds to a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("seconds must be an integer: %w", err)
			}
			e, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			p, err := e.FromLinearSeconds(secs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date DATE",
		Short: "Describe a day: weekday, season, moon phases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			p, err := parseDate(args[0])
			if err != nil {
				return err
			}
			info, err := calendar.DescribeDate(e, p)
			if err != nil {
				return err
			}
			return printOutput(cmd, info)
		},
	}
}

// monthRow is one day of a month listing.
type monthRow struct {
	Day     int      `json:"day" yaml:"day"`
	Weekday string   `json:"weekday,omitempty" yaml:"weekday,omitempty"`
	Moons   []string `json:"moons,omitempty" yaml:"moons,omitempty"`
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month YEAR MONTH",
		Short: "List the days of a month (MONTH is 1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("month must be an integer: %w", err)
			}
			e, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			def := e.Definition()
			days, err := def.MonthDays(year, month-1)
			if err != nil {
				return err
			}

			rows := make([]monthRow, 0, days)
			for d := 1; d <= days; d++ {
				p := calendar.DateTimeParts{Year: year, Month: month - 1, Day: d}
				name, err := def.WeekdayName(p)
				if err != nil {
					return err
				}
				moons, err := def.MoonsOn(p)
				if err != nil {
					return err
				}
				row := monthRow{Day: d, Weekday: name}
				for _, m := range moons {
					row.Moons = append(row.Moons, m.MoonName+": "+m.Phase.Name)
				}
				rows = append(rows, row)
			}
			return printOutput(cmd, map[string]any{
				"year":  def.FormatYear(year),
				"month": def.Months()[month-1].Name,
				"days":  rows,
			})
		},
	}
}

func newNextCmd() *cobra.Command {
	var (
		repeat string
		count  int
		end    string
	)
	cmd := &cobra.Command{
		Use:   "next ANCHOR AFTER",
		Short: "List the next occurrences of a note anchored on ANCHOR after AFTER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			r, err := calendar.ParseRepeat(repeat)
			if err != nil {
				return err
			}
			anchor, err := parseDate(args[0])
			if err != nil {
				return err
			}
			after, err := parseDate(args[1])
			if err != nil {
				return err
			}
			note := calendar.Note{Anchor: anchor, Repeat: r}
			if end != "" {
				p, err := parseDate(end)
				if err != nil {
					return err
				}
				note.End = &p
			}

			var out []string
			for len(out) < count {
				next, ok, err := e.NextOccurrence(note, after)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				out = append(out, next.String())
				after = next
			}
			return printOutput(cmd, out)
		},
	}
	cmd.Flags().StringVar(&repeat, "repeat", "none", "none, weekly, monthly or yearly")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of occurrences")
	cmd.Flags().StringVar(&end, "end", "", "last day of a multi-day, non-repeating note")
	return cmd
}
