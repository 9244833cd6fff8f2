package cmd

import (
	"fmt"

	"github.com/fjod/go_cart/storefront-service/internal/config"
	"github.com/fjod/go_cart/storefront-service/internal/logging"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/spf13/cobra"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres order store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel)

			creds := postgresCredentials(cfg)
			repo, err := repository.NewPostgresOrderRepository(creds)
			if err != nil {
				return fmt.Errorf("connect order store: %w", err)
			}
			defer repo.Close()

			if err := repo.RunMigrations(creds); err != nil {
				return err
			}

			logger.Info("migrations applied", "path", creds.MigrationsDirPath)
			return nil
		},
	}
}

func postgresCredentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
}
