// gofuzz is the campaign runner: it loads a YAML configuration, spins up
// one independent fuzzing peer per configured Campaign.Peers, and drives
// them concurrently until interrupted, periodically checkpointing progress
// so a later "resume" picks up where it left off.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "gofuzz",
		Short: "gofuzz - coverage-guided in-process fuzzing kernel",
		Long: `gofuzz drives a coverage-guided, in-process fuzzing campaign:
a feedback algebra over observer data decides which inputs are kept,
a restart-safe mutational stage engine explores from them, and any
number of independent peers run the same pipeline concurrently.`,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gofuzz version %s\n", version)
		},
	}
}
