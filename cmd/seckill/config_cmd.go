// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/ManuGH/seckill/internal/config"
	"github.com/spf13/cobra"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or print the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load defaults, file and environment and validate the result",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.loadConfig(); err != nil {
				return err
			}
			source := c.configPath
			if source == "" {
				source = "environment and defaults"
			}
			c.printf("configuration from %s is valid\n", source)
			return nil
		},
	})

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration with secrets redacted",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if format != "yaml" && format != "json" {
				return usagef("--format must be yaml or json")
			}
			return config.Dump(c.out, cfg, format)
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.AddCommand(dump)
	return cmd
}

func (c *cli) loadConfig() (config.AppConfig, error) {
	cfg, err := config.NewLoader(c.configPath).WithOverrides(c.overrides()...).Load()
	if err != nil {
		return cfg, usageError{err}
	}
	return cfg, nil
}
