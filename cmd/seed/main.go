package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"medcircle/internal/cache"
	"medcircle/internal/config"
	"medcircle/internal/db"
	"medcircle/internal/logging"
	"medcircle/internal/realtime"
	"medcircle/internal/repository"
	"medcircle/internal/service"
)

// seed bootstraps administrators. The account must already exist; run it
// after the user has signed up, e.g.
//
//	go run ./cmd/seed -admin-email ops@example.org,lead@example.org
func main() {
	adminEmails := flag.String("admin-email", "", "comma-separated emails of existing accounts to promote to admin")
	flag.Parse()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, "medcircle-seed")
	log := logging.Logger

	if strings.TrimSpace(*adminEmails) == "" {
		log.Error().Msg("nothing to do: pass -admin-email")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mongoClient, mongoDB, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	store := repository.NewStore(mongoClient, mongoDB)
	defer store.Close(context.Background())
	log.Info().Msg("Connected to database")

	if err := db.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure indexes")
	}

	// Promotion only touches the profile; the cache is cleared so GetUser sees the new role.
	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	bus := realtime.NewRedisBus(cacheClient.Redis(), log)
	users := service.NewUserService(repository.NewUserRepository(mongoDB), nil, cacheClient, bus)

	failed := 0
	for _, email := range strings.Split(*adminEmails, ",") {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		user, err := users.PromoteAdmin(ctx, email)
		if err != nil {
			failed++
			log.Error().Err(err).Str("email", email).Msg("Failed to promote admin")
			continue
		}
		log.Info().Str("user_id", user.ID).Str("email", email).Msg("Promoted to admin")
	}

	if failed > 0 {
		os.Exit(1)
	}
	log.Info().Msg("Seed completed successfully")
}
