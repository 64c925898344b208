package cli

import (
	"context"
	"errors"
	"time"

	"taskboard-service/config"
	"taskboard-service/logging"
	"taskboard-service/repositories"

	"github.com/spf13/cobra"
)

func newEnsureIndexesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes and the Cassandra notices table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return ensureIndexes(ctx, cfg)
		},
	}
}

func ensureIndexes(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage != config.StorageMongo {
		return errors.New("ensure-indexes needs STORAGE=mongo")
	}

	client, err := repositories.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := repositories.EnsureIndexes(ctx, client.Database(cfg.MongoDBName)); err != nil {
		return err
	}

	if cfg.NoticeStore == config.NoticeStoreCassandra {
		repo, err := repositories.NewNoticeCassandraRepo(cfg.CassandraDB, cfg.CassKeyspace)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.CreateTable(ctx); err != nil {
			return err
		}
	}

	logging.Logger.Info("Event ID: INDEXES_READY, Description: Storage schema is up to date")
	return nil
}
