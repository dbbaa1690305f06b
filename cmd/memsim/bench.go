package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/memsim/benchmarks"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the synthetic memory workloads.",
	Long: `Run the synthetic workloads, each on a fresh memory system. ` +
		`Workloads that need more cores than the mode provides are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()

		system, err := systemConfig(flags)
		if err != nil {
			return err
		}

		config := benchmarks.DefaultConfig()
		config.System = system
		config.Output = cmd.OutOrStdout()
		config.Verbose, _ = flags.GetBool("verbose")

		harness := benchmarks.NewHarness(config)
		if quick, _ := flags.GetBool("quick"); quick {
			harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
		} else {
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
		}

		results, err := harness.RunAll()
		if err != nil {
			return err
		}

		format, _ := flags.GetString("format")
		switch format {
		case "table":
			harness.PrintResults(results)
		case "csv":
			harness.PrintCSV(results)
		case "json":
			return harness.PrintJSON(results)
		default:
			return fmt.Errorf("unknown format %q, want table, csv or json", format)
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().String("format", "table", "output format: table, csv, json")
	benchCmd.Flags().Bool("quick", false, "run only the single-core core set")
}
