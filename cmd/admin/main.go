package main

import (
	"context"
	"errors"
	"log"
	"os"

	"achievement-service/internal/auth"
	"achievement-service/internal/config"
	"achievement-service/internal/db"
	"achievement-service/internal/metrics"
	"achievement-service/internal/schema"
	"achievement-service/internal/user"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := schema.Migrate(ctx, database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	m := metrics.NewMock()
	cli := &commandLine{
		users:  user.NewRepository(database, m),
		tokens: auth.NewRepository(database, m),
		out:    os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
