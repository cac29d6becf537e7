// Package cli wires the planner-server commands: serve, migrate and consume.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile  string
	logLevel string
)

// rootCmd is the root command for planner-server.
var rootCmd = &cobra.Command{
	Use:     "planner-server",
	Version: "dev",
	Short:   "Wedding guest roster and seating chart service",
	Long: `planner-server runs the wedding planning API.

It serves the guest roster and seating chart endpoints, applies the MySQL
schema and consumes planning events from RabbitMQ.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the planner-server version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	})
}

// levelOr returns the --log-level flag when set.
func levelOr(configured string) string {
	if logLevel != "" {
		return logLevel
	}
	return configured
}
