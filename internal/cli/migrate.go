package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repik/lavanderia/internal/config"
	"github.com/repik/lavanderia/internal/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(postgres.Up), string(postgres.Down)},
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := config.LoadDatabase()
			if err != nil {
				return err
			}

			dir := postgres.Direction(args[0])
			if err := postgres.Migrate(db.DSN(), dir); err != nil {
				return fmt.Errorf("migrate %s: %w", dir, err)
			}
			return nil
		},
	}
}
