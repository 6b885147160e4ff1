// Command digestiflow-cli ingests Illumina sequencer output directories,
// registering or updating their flow cell records with a
// digestiflow-server instance and optionally sampling adapter
// histograms.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bihealth/digestiflow-cli/ingest"
)

var rootCmd = &cobra.Command{
	Use:   "digestiflow-cli",
	Short: "Client for registering Illumina flow cells with digestiflow-server",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ingest.PrintCauseChain(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "All done. Have a nice day.")
}
