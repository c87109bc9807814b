package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pantry-finder/internal/render"
	"github.com/sells-group/pantry-finder/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear a session's saved filters",
}

// -- session show --

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the filters saved for a session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := render.ParseFormat(flagString(cmd, "format"))
		if err != nil {
			return err
		}
		return withSessions(cmd.Context(), func(st session.Store) error {
			return showSession(cmd.Context(), cmd.OutOrStdout(), st, flagString(cmd, "session"), format)
		})
	},
}

// -- session clear --

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the filters saved for a session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id := flagString(cmd, "session")
		return withSessions(cmd.Context(), func(st session.Store) error {
			if err := st.Delete(cmd.Context(), id); err != nil {
				return eris.Wrap(err, "session clear")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Cleared filters for session %s.\n", id)
			return nil
		})
	},
}

func withSessions(ctx context.Context, fn func(session.Store) error) error {
	st, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return eris.Wrap(err, "open session store")
	}
	defer st.Close() //nolint:errcheck
	return fn(st)
}

func showSession(ctx context.Context, out io.Writer, st session.Store, id string, format render.Format) error {
	cats, err := st.Load(ctx, id)
	if err != nil {
		return eris.Wrap(err, "session show")
	}
	if format != render.Table {
		return render.Value(out, format, cats)
	}
	if cats.Empty() {
		fmt.Fprintln(out, "No filters saved.")
		return nil
	}
	fmt.Fprintf(out, "filter1:     %v\n", cats.Filter1)
	fmt.Fprintf(out, "filter2:     %v\n", cats.Filter2)
	fmt.Fprintf(out, "choice only: %t\n", cats.ChoiceOnly)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{sessionShowCmd, sessionClearCmd} {
		c.Flags().String("session", "", "session id")
		_ = c.MarkFlagRequired("session")
	}
	sessionShowCmd.Flags().String("format", "table", "output format: table, json or yaml")

	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}
