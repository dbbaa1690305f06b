package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/datarecording"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/memsim/loader"
	"github.com/sarchlab/memsim/timing/core"
	"github.com/sarchlab/memsim/timing/memsys"
)

var runCmd = &cobra.Command{
	Use:   "run <trace> [trace...]",
	Short: "Replay address traces and print the statistics.",
	Long: `Replay address traces through the memory system. With one trace, ` +
		`the core column of each record picks the core. With several traces, ` +
		`trace i is the stream of core i.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		if path, _ := flags.GetString("cpuprofile"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create CPU profile: %w", err)
			}
			defer func() { _ = f.Close() }()

			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("failed to start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		record, err := recordPath(flags)
		if err != nil {
			return err
		}

		config, err := systemConfig(flags)
		if err != nil {
			return err
		}

		logger := newLogger(flags)
		sys, err := memsys.New(config, memsys.WithLogger(logger))
		if err != nil {
			return err
		}

		streams, err := loadStreams(args, sys.Config().NumCores)
		if err != nil {
			return err
		}

		runner := core.NewRunner(sys, streams, core.WithLogger(logger))
		if maxCycles, _ := flags.GetUint64("max-cycles"); maxCycles > 0 {
			if runner.RunCycles(maxCycles) {
				logger.Warn("cycle limit reached before the traces drained", "cycles", maxCycles)
			}
		} else {
			runner.Run()
		}
		stats := runner.Stats()

		out := cmd.OutOrStdout()
		sys.PrintStats(out)
		_, _ = fmt.Fprintf(out, "\nCYCLES                 \t\t : %10d\n", stats.Cycles)

		if path, _ := flags.GetString("memprofile"); path != "" {
			if err := writeHeapProfile(path); err != nil {
				return err
			}
		}

		if record == "" {
			return nil
		}

		recorder := datarecording.NewDataRecorder(record)
		sys.Report(recorder, xid.New().String())
		return recorder.Close()
	},
}

func init() {
	runCmd.Flags().String("cpuprofile", "", "write a CPU profile to this file")
	runCmd.Flags().String("memprofile", "", "write a heap profile to this file after the run")
	runCmd.Flags().Uint64("max-cycles", 0, "stop after this many cycles (0 = run to completion)")
	runCmd.Flags().String("record", "", "store statistics in <path>.sqlite3, default $"+envRecord)
}

// loadStreams reads the trace files and returns one reference stream per
// core. References of cores the system does not have are dropped.
func loadStreams(paths []string, numCores int) ([][]loader.Record, error) {
	if len(paths) == 1 {
		trace, err := loader.Load(paths[0])
		if err != nil {
			return nil, err
		}
		return trace.Split(numCores), nil
	}

	if len(paths) > numCores {
		return nil, fmt.Errorf("%d traces given but the mode has %d cores", len(paths), numCores)
	}

	streams := make([][]loader.Record, numCores)
	for i, path := range paths {
		trace, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		for _, rec := range trace.Records {
			rec.Core = i
			streams[i] = append(streams[i], rec)
		}
	}
	return streams, nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	return nil
}

// recordPath returns the database name given by --record or $MEMSIM_RECORD.
// The recorder would replace an existing <name>.sqlite3, so that is an
// error here.
func recordPath(flags *pflag.FlagSet) (string, error) {
	record, _ := flags.GetString("record")
	if record == "" {
		record = os.Getenv(envRecord)
	}
	if record == "" {
		return "", nil
	}

	filename := record + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return "", fmt.Errorf("record file %s already exists", filename)
	}
	return record, nil
}
