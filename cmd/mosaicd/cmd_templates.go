package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erichter2018/MosaicTools-sub001/pkg/templates"
)

// openStore opens the runtime database and returns the template store.
// The caller owns closing the returned DB.
func openStore() (*sql.DB, *templates.Store, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureHome(); err != nil {
		return nil, nil, err
	}
	db, err := openDB(paths.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, templates.NewStore(db), nil
}

// newTemplatesCmd creates the "mosaicd templates" subcommand group.
func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage the historical template store",
		Long:  "Lists, shows, and curates the per-description report templates used as\nbaseline fallbacks when a live capture window is missed.",
	}

	cmd.AddCommand(newTemplatesListCmd())
	cmd.AddCommand(newTemplatesShowCmd())
	cmd.AddCommand(newTemplatesAddCmd())
	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates (best entry per description)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no templates stored")
				return nil
			}
			for _, t := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%-50s weight=%.1f bytes=%d %s\n",
					t.Description, t.Weight, len(t.Body), t.CreatedAt)
			}
			return nil
		},
	}
}

func newTemplatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <description>",
		Short: "Print the best stored template body for a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			t, found, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no template stored for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Body)
			return nil
		},
	}
}

func newTemplatesAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Store a curated template (body from --file or stdin)",
		Long:  "Curated templates outrank observed captures in fallback lookups.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			var err error
			if file != "" {
				body, err = os.ReadFile(file) //nolint:gosec // user-supplied path is the point
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read template body: %w", err)
			}
			if len(body) == 0 {
				return fmt.Errorf("template body is empty")
			}

			db, store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := store.Save(cmd.Context(), args[0], string(body), templates.WeightCurated); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored curated template for %q (%d bytes)\n",
				args[0], len(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read template body from file instead of stdin")
	return cmd
}
