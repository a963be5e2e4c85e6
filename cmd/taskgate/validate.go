package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskgate-hq/taskgate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the server.

All violations are reported at once, not just the first one found.

Examples:
  # Validate the default config file
  taskgate validate

  # Validate a specific file
  taskgate validate --config /etc/taskgate/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", cfgFile, err)
	}

	if err := config.Validate(cfg); err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s has %d problem(s):\n", cfgFile, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("configuration invalid")
		}
		return err
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	return nil
}
