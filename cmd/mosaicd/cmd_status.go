package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// isStdoutTTY reports whether stdout is an interactive terminal.
func isStdoutTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newStatusCmd creates the "mosaicd status" subcommand.
func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and study state",
		Long:  "Displays process liveness plus the daemon's own view of the current\nstudy, pending actions, and connected subscribers.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			w := cmd.OutOrStdout()

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}
			if status != StatusRunning {
				fmt.Fprintf(w, "mosaicd: %s\n", statusLabel(status))
				return nil
			}

			ack, err := roundTrip(paths.SocketPath, protocol.Message{
				Type:   protocol.MsgStatus,
				Status: &protocol.StatusPayload{},
			})
			if err != nil {
				fmt.Fprintf(w, "mosaicd: %s (PID %d), socket unreachable: %v\n",
					statusLabel(status), pid, err)
				return nil
			}

			if asJSON {
				fmt.Fprintln(w, ack.Detail)
				return nil
			}

			var st struct {
				State       string `json:"state"`
				Accession   string `json:"accession"`
				Pending     int    `json:"pending"`
				Subscribers int    `json:"subscribers"`
				Interval    string `json:"interval"`
			}
			if err := json.Unmarshal([]byte(ack.Detail), &st); err != nil {
				fmt.Fprintln(w, ack.Detail)
				return nil
			}

			fmt.Fprintf(w, "mosaicd: %s (PID %d)\n", statusLabel(StatusRunning), pid)
			fmt.Fprintf(w, "  state:       %s\n", st.State)
			if st.Accession != "" {
				fmt.Fprintf(w, "  accession:   %s\n", st.Accession)
			}
			fmt.Fprintf(w, "  pending:     %d\n", st.Pending)
			fmt.Fprintf(w, "  subscribers: %d\n", st.Subscribers)
			fmt.Fprintf(w, "  interval:    %s\n", st.Interval)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON status")
	return cmd
}

// statusLabel renders a daemon status, with color when stdout is a TTY.
func statusLabel(s DaemonStatusValue) string {
	if !isStdoutTTY() {
		return string(s)
	}
	switch s {
	case StatusRunning:
		return "\033[32mrunning\033[0m"
	case StatusStale:
		return "\033[33mstale\033[0m"
	default:
		return "\033[31mstopped\033[0m"
	}
}
