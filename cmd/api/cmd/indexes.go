package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"concertlog/api/internal/config"
	"concertlog/api/internal/database"
	"concertlog/api/internal/log"
	"concertlog/api/internal/repository"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger := log.New(cfg.Environment)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client, err := database.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		db := client.Database(cfg.Mongo.Database)
		if err := ensureIndexes(ctx, db); err != nil {
			return err
		}
		logger.Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
		return nil
	},
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, ix := range []indexer{
		repository.NewUserRepository(db),
		repository.NewConcertRepository(db),
	} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
