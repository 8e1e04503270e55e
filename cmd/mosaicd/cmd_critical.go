package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erichter2018/MosaicTools-sub001/pkg/critical"
)

// newCriticalCmd creates the "mosaicd critical" subcommand group.
func newCriticalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Review tracked critical-findings studies",
	}

	cmd.AddCommand(newCriticalListCmd())
	cmd.AddCommand(newCriticalUntrackCmd())
	return cmd
}

func newCriticalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List studies with critical findings notes, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			entries, err := critical.NewList(db).Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no critical studies tracked")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-24s mrn=%-12s site=%-6s %s (%s)\n",
					e.Accession, e.PatientName, e.MRN, e.SiteCode, e.Description, e.CreatedAt)
			}
			return nil
		},
	}
}

func newCriticalUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <accession>",
		Short: "Remove a study from the critical review list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := critical.NewList(db).Untrack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no entries for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries for %s\n", n, args[0])
			return nil
		},
	}
}
