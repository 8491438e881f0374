package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"analogfinder/internal/db"
	"analogfinder/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply the embedded schema migrations to the database named by SQLITE_PATH
or SQLITE_DSN. Without either the database lives in memory and the command
only checks that every migration applies cleanly.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()

	applied, err := migrate.Run(cmd.Context(), conn, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()

	migrations, err := migrate.Status(cmd.Context(), conn)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
	for _, m := range migrations {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", m.Version, m.Name, m.Applied)
	}
	return tw.Flush()
}
