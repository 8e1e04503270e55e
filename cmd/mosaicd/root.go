package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erichter2018/MosaicTools-sub001/internal/appversion"
)

// newRootCmd creates the root mosaicd command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mosaicd",
		Short:         "Radiology reporting reconciliation daemon",
		Long:          "mosaicd watches the radiology reporting application, keeps a model of the\nopen study, runs automation actions, and notifies downstream consumers.",
		Version:       fmt.Sprintf("mosaicd %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newTriggerCmd(),
		newTemplatesCmd(),
		newCriticalCmd(),
	)

	return cmd
}
