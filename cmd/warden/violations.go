package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flemzord/warden/pkg/app"
)

func violationsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "Inspect and reset stored violation counters",
		Long: "Reads the configured store module directly. Run it while the bot is stopped, " +
			"or use the gateway API of a running bot: the bot keeps counters in memory and " +
			"overwrites the store on its next flush.",
	}
	cmd.AddCommand(violationsListCmd(flags), violationsResetCmd(flags))
	return cmd
}

type violationJSON struct {
	UserID int64 `json:"user_id"`
	Count  int   `json:"count"`
}

func violationsListCmd(flags *globalFlags) *cobra.Command {
	var activeOnly, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users with a stored counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.OpenViolationStore(flags.params(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			return printViolations(cmd.OutOrStdout(), records, asJSON)
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show users with a non-zero counter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printViolations(w io.Writer, records []app.Record, asJSON bool) error {
	if asJSON {
		out := make([]violationJSON, len(records))
		for i, r := range records {
			out[i] = violationJSON{UserID: r.UserID, Count: r.Count}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No violations recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tCOUNT")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\n", r.UserID, r.Count)
	}
	return tw.Flush()
}

func violationsResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user_id>",
		Short: "Reset a user's counter to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			store, err := app.OpenViolationStore(flags.params(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()

			prev, err := store.Reset(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset user %d (was %d).\n", userID, prev)
			return nil
		},
	}
}
