package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pantry-finder/internal/model"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/render"
	"github.com/sells-group/pantry-finder/internal/session"
)

type findOptions struct {
	Address    string
	ZIP        string
	Lat, Lon   float64
	HasPoint   bool
	At         string
	Filter1    []string
	Filter2    []string
	ChoiceOnly bool
	HasFilters bool
	Session    string
	Format     string
}

var findOpts findOptions

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "List agencies open near a location",
	Long: "Finds agencies within the travel-time budget of an address, ZIP or coordinate and open at the given time " +
		"(default now). Filter flags apply to this search and, with --session, are saved for the next one.",
	Example: `  pantry-finder find --address "1 E Edenton St, Raleigh NC" --at "2024-01-01 12:00"
  pantry-finder find --zip 27601 --filter1 Pantry --format json
  pantry-finder find --lat 35.78 --lon -78.64 --session kitchen-01`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		noHours, _ := cmd.Flags().GetBool("no-hours")

		env, err := initSearch(cmd.Context(), cfg, "find", func(c *pantry.Config) {
			if noHours {
				c.Stages.Hours = false
			}
		})
		if err != nil {
			return err
		}
		defer env.Close()

		opts := findOpts
		opts.HasPoint = cmd.Flags().Changed("lat")
		opts.HasFilters = cmd.Flags().Changed("filter1") || cmd.Flags().Changed("filter2") || cmd.Flags().Changed("choice-only")
		return runFind(cmd.Context(), cmd.OutOrStdout(), env.Engine, env.Sessions, opts)
	},
}

// runFind executes one search. Explicit filters win over the session's saved
// selection and replace it when a session is named.
func runFind(ctx context.Context, out io.Writer, engine *pantry.Engine, sessions session.Store, opts findOptions) error {
	format, err := render.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	at, err := pantry.ParseAt(opts.At, engine.Config().Location)
	if err != nil {
		return err
	}

	q := pantry.Query{Address: opts.Address, ZIP: opts.ZIP, At: at}
	if opts.HasPoint {
		q.Point = &model.Point{Latitude: opts.Lat, Longitude: opts.Lon}
	}

	var resp *pantry.Response
	switch {
	case opts.HasFilters:
		q.Categories = model.Categories{Filter1: opts.Filter1, Filter2: opts.Filter2, ChoiceOnly: opts.ChoiceOnly}
		if opts.Session != "" {
			if err := sessions.Save(ctx, opts.Session, q.Categories); err != nil {
				return eris.Wrap(err, "find: save session filters")
			}
		}
		resp, err = engine.Search(ctx, q)
	case opts.Session != "":
		resp, err = engine.SearchSession(ctx, sessions, opts.Session, q)
	default:
		resp, err = engine.Search(ctx, q)
	}
	if err != nil {
		return err
	}
	return render.Response(out, format, resp)
}

func init() {
	f := findCmd.Flags()
	f.StringVar(&findOpts.Address, "address", "", "street address or a 5-digit ZIP")
	f.StringVar(&findOpts.ZIP, "zip", "", "ZIP code")
	f.Float64Var(&findOpts.Lat, "lat", 0, "latitude")
	f.Float64Var(&findOpts.Lon, "lon", 0, "longitude")
	f.StringVar(&findOpts.At, "at", "", `time to check, "YYYY-MM-DD HH:MM" in the configured timezone (default now)`)
	f.StringSliceVar(&findOpts.Filter1, "filter1", nil, "primary category; repeat or comma-separate")
	f.StringSliceVar(&findOpts.Filter2, "filter2", nil, "secondary category; only applies with --filter1")
	f.BoolVar(&findOpts.ChoiceOnly, "choice-only", false, "only client-choice agencies")
	f.StringVar(&findOpts.Session, "session", "", "session id whose saved filters apply")
	f.Bool("no-hours", false, "skip the open-hours check")
	f.StringVar(&findOpts.Format, "format", "table", "output format: table, json, geojson or yaml")

	findCmd.MarkFlagsRequiredTogether("lat", "lon")
	findCmd.MarkFlagsMutuallyExclusive("address", "zip", "lat")
	rootCmd.AddCommand(findCmd)
}
