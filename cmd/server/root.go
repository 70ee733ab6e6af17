package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskflow/internal/config"
	"github.com/yukikurage/taskflow/internal/logging"
)

var (
	debug   bool
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:           "taskflow",
		Short:         "taskflow assigns, delegates and tracks staff tasks",
		SilenceErrors: true,
		// The bare command starts the API server
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (overrides DEBUG)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if debug {
			cfg.Debug = true
		}
		logging.Init(cfg.Debug, cfg.GinMode != gin.ReleaseMode)
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(staffCmd())
	return rootCmd.Execute()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}
