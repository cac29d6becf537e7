package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/wedding-planner/internal/config"
	"github.com/iliyamo/wedding-planner/internal/database"
	"github.com/iliyamo/wedding-planner/internal/logging"
)

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded MySQL schema",
	Long: `Apply the embedded schema to the database named by DB_*.

Every statement is idempotent. Use --print to write the statements to
stdout without connecting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migratePrint {
			for _, s := range database.Statements() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s); err != nil {
					return err
				}
			}
			return nil
		}

		config.LoadDotEnv(envFile)
		cfg := config.LoadDB()
		log := logging.New(levelOr(cfg.LogLevel), cfg.Env)

		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer db.Close()
		return database.Migrate(cmd.Context(), db, logging.Component(log, "migrate"))
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}
