package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as JSON.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := systemConfig(cmd.Flags())
		if err != nil {
			return err
		}

		if normalize, _ := cmd.Flags().GetBool("normalize"); normalize {
			config.Normalize()
			if err := config.Validate(); err != nil {
				return err
			}
		}

		data, err := config.JSON()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	configCmd.Flags().Bool("normalize", false, "fill derived fields and validate")
}
