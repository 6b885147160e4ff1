package main

import (
	goflag "flag"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bihealth/digestiflow-cli/ingest"
	"github.com/bihealth/digestiflow-cli/settings"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest PATH...",
	Short: "Ingest one or more Illumina sequencer output directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureVerbosity(cmd.Flags())

		s, err := settings.New(cmd.Flags())
		if err != nil {
			return err
		}

		return ingest.Run(cmd.Context(), s, args)
	},
}

// configureVerbosity maps --quiet/--verbose onto vlog's "-v" flag,
// matching original_source/src/main.rs's RuntimeLevelFilter: quiet ->
// Warning (lowest), default -> Info (level 1), each repeated --verbose
// -> one step deeper.
func configureVerbosity(flags *pflag.FlagSet) {
	quiet, _ := flags.GetBool("quiet")
	verbose, _ := flags.GetCount("verbose")

	level := 1 + verbose
	if quiet {
		level = 0
	}
	_ = goflag.CommandLine.Set("v", strconv.Itoa(level))
}

func init() {
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	ingestCmd.Flags().Bool("quiet", false, "reduce log level to warnings")
	ingestCmd.Flags().CountP("verbose", "v", "increase log verbosity (repeatable)")
	ingestCmd.Flags().Bool("log-token", false, "permit printing the auth token in logs")
	ingestCmd.Flags().Int("threads", 0, "worker pool size (unset = configured value; 0 = no limit)")
	ingestCmd.Flags().String("web-url", "", "base URL of the digestiflow-server REST API")
	ingestCmd.Flags().String("project-uuid", "", "target project UUID (required)")
	ingestCmd.Flags().Bool("no-register", false, "disable creation of new flow cells on 404")
	ingestCmd.Flags().Bool("no-update", false, "disable updating existing flow cells on 200")
	ingestCmd.Flags().Bool("analyze-adapters", false, "enable adapter histogram sampling")
	ingestCmd.Flags().Bool("post-adapters", false, "upload sampled adapter histograms")
	ingestCmd.Flags().Int("sample-reads-per-tile", 0, "clamp clusters read per file (0 = all)")
	ingestCmd.Flags().Bool("analyze-if-state-final", false, "ignore the final-status skip rule when updating")

	rootCmd.AddCommand(ingestCmd)
}
