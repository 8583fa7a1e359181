package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/tutorlink/tutorlink/internal/config"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		writeVersion(cmd.OutOrStdout(), extended)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}

func writeVersion(w io.Writer, extended bool) {
	version := versionInfo.Version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "%s %s\n", config.AppName, version)
	if !extended {
		return
	}

	fmt.Fprintf(w, "Commit: %s\n", versionInfo.Commit)
	fmt.Fprintf(w, "Built: %s\n", versionInfo.BuildDate)
	fmt.Fprintf(w, "Go: %s\n\n", runtime.Version())

	ssot := crucible.GetVersion()
	fmt.Fprintf(w, "Gofulmen: %s\n", ssot.Gofulmen)
	fmt.Fprintf(w, "Crucible: %s\n", ssot.Crucible)
}
