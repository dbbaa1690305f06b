package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/dram"
	"github.com/sarchlab/memsim/timing/memsys"
)

// Environment variables read as flag defaults.
const (
	envConfig = "MEMSIM_CONFIG"
	envRecord = "MEMSIM_RECORD"
)

var rootCmd = &cobra.Command{
	Use:   "memsim",
	Short: "Memsim simulates a CPU memory hierarchy driven by address traces.",
	Long: `Memsim simulates L1 instruction and data caches, a shared L2 and a ` +
		`row-buffer DRAM. Modes A to F select the fidelity, from a lone data ` +
		`cache to two cores with a partitioned L2.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile == "" {
			return nil
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	},
}

func init() {
	addSystemFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file with "+envConfig+" and "+envRecord)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every access at debug level to stderr")

	rootCmd.AddCommand(runCmd, benchCmd, configCmd)
}

// addSystemFlags defines the flags read by systemConfig.
func addSystemFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "memory system config file (YAML or JSON), default $"+envConfig)
	flags.String("mode", "", "simulation mode A-F")
	flags.String("policy", "", "L1 replacement policy: lru, random, swp, dwp")
	flags.String("l2-policy", "", "L2 replacement policy, modes D-F only")
	flags.String("page-policy", "", "DRAM page policy: open, close")
	flags.Int("core0-ways", 4, "L2 ways reserved for core 0 by the partitioning policies")
	flags.Uint64("seed", 1, "seed of the random replacement policy")
}

// systemConfig builds the memory system configuration from the config file
// and the flags that were set explicitly.
func systemConfig(flags *pflag.FlagSet) (*memsys.Config, error) {
	path, _ := flags.GetString("config")
	if path == "" {
		path = os.Getenv(envConfig)
	}

	config := memsys.DefaultConfig()
	if path != "" {
		var err error
		config, err = memsys.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if s, _ := flags.GetString("mode"); s != "" {
		mode, err := memsys.ParseMode(s)
		if err != nil {
			return nil, err
		}
		config.Mode = mode
	}

	if s, _ := flags.GetString("policy"); s != "" {
		policy, err := cache.ParsePolicy(s)
		if err != nil {
			return nil, err
		}
		config.ReplPolicy = policy
	}

	if s, _ := flags.GetString("l2-policy"); s != "" {
		policy, err := cache.ParsePolicy(s)
		if err != nil {
			return nil, err
		}
		config.L2ReplPolicy = &policy
	}

	if s, _ := flags.GetString("page-policy"); s != "" {
		policy, err := dram.ParsePagePolicy(s)
		if err != nil {
			return nil, err
		}
		config.DRAMPagePolicy = policy
	}

	if flags.Changed("core0-ways") {
		config.SWPCore0Ways, _ = flags.GetInt("core0-ways")
	}

	if flags.Changed("seed") {
		config.RandomSeed, _ = flags.GetUint64("seed")
	}

	return config, nil
}

func newLogger(flags *pflag.FlagSet) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
