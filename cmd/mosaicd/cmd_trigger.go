package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// newTriggerCmd creates the "mosaicd trigger" subcommand. This is the path
// hotkey daemons and hardware button bridges use to enqueue actions.
func newTriggerCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "trigger <kind>",
		Short: "Queue an automation action",
		Long: `Queues one action on the daemon's serial executor and prints the request ID.

Kinds: insert_macro, auto_fix, critical_note, sign_report, discard_report,
select_all, resync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := protocol.Kind(args[0])
			if !kind.Valid() {
				return fmt.Errorf("unknown action kind %q", args[0])
			}

			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			ack, err := roundTrip(paths.SocketPath, protocol.Message{
				Type:    protocol.MsgTrigger,
				Trigger: &protocol.TriggerPayload{Kind: kind, Source: source},
			})
			if err != nil {
				return err
			}
			if !ack.OK {
				return fmt.Errorf("daemon rejected trigger: %s", ack.Detail)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (request %s)\n", kind, ack.Detail)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", protocol.SourceUI,
		"trigger source (hotkey, button, ui, internal)")
	return cmd
}
