package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewmudry/shootplan-api/internal/platform"
)

// migrator is the subset of *platform.Migrator the commands use.
type migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
}

func newRootCmd(open func(dsn, dir string) (migrator, error), out io.Writer) *cobra.Command {
	cfg, _ := platform.LoadConfig()
	var dsn, dir string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or revert the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "database", cfg.DatabaseURL, "database URL")
	root.PersistentFlags().StringVar(&dir, "dir", cfg.MigrationsDir, "migrations directory")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dsn, dir)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				if errors.Is(err, platform.ErrNoChange) {
					fmt.Fprintln(out, "schema is up to date")
					return nil
				}
				return err
			}
			fmt.Fprintln(out, "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dsn, dir)
			if err != nil {
				return err
			}
			if err := m.Down(steps); err != nil {
				if errors.Is(err, platform.ErrNoChange) {
					fmt.Fprintln(out, "nothing to revert")
					return nil
				}
				return err
			}
			fmt.Fprintf(out, "reverted %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to revert")
	root.AddCommand(down)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(dsn, dir)
			if err != nil {
				return err
			}
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(out, "%d (dirty)\n", v)
				return nil
			}
			fmt.Fprintf(out, "%d\n", v)
			return nil
		},
	})

	return root
}

func openMigrator(dsn, dir string) (migrator, error) {
	return platform.NewMigrator(dsn, dir)
}

func main() {
	if err := newRootCmd(openMigrator, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
