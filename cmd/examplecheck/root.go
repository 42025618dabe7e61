package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examplecheck",
		Short: "Verify that every library example cross-compiles for a target",
		Long: `examplecheck assembles a throwaway project from the cortex-m-quickstart
template, wires the library in the current directory into it as a local path
dependency, and runs a compilation check per example for the configured
target. The first failing example aborts the run.`,
		Version:      version,
		RunE:         runCheck,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("target", "", "Cross-compilation target triple (default $EXAMPLECHECK_TARGET, then $TARGET)")

	cmd.Flags().String("template-repo", "", "Template repository URL override")
	cmd.Flags().String("template-version", "", "Template version tag override")
	cmd.Flags().String("runtime-version", "", "Pinned runtime crate version override")
	cmd.Flags().Bool("keep", false, "Keep the scratch workspace after the run")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newDoctorCmd())

	return cmd
}
