// Package cli wires the fastinsert commands with cobra.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/fastinsert/internal/config"
	"github.com/BartekS5/fastinsert/pkg/logger"
)

type rootOptions struct {
	ConfigFile string
	LogLevel   string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	root := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "fastinsert",
		Short: "fastinsert - bulk loader for SQL Server, PostgreSQL, MySQL and MongoDB",
		Long: `fastinsert streams records into a database table through the destination's
native bulk path. Record shapes, table and column names and the batch size
are declared in a mapping file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(root.ConfigFile)
			if err != nil {
				return err
			}
			if root.LogLevel != "" {
				cfg.LogLevel = root.LogLevel
			}
			root.cfg = cfg
			return logger.Init(logger.Config{Level: cfg.LogLevel, Encoding: "console", File: cfg.LogFile})
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigFile, "config", "", "Optional config file (yaml, json, toml or env)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level, overrides LOG_LEVEL")

	rootCmd.AddCommand(NewLoadCmd(root), NewPlanCmd())

	return rootCmd
}
