// Command seed wipes the store and reloads the embedded fixtures. Meant for
// development and test databases only.
package main

import (
	"context"

	"guidance/api/internal/config"
	"guidance/api/internal/seed"
	"guidance/api/internal/store"
	"guidance/api/internal/util"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	guidelines, users, err := seed.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("fixture load failed")
	}

	if err := dataStore.Reset(ctx); err != nil {
		log.Fatal().Err(err).Msg("reset failed")
	}

	for _, g := range guidelines {
		if g.ID == "" {
			g.ID = util.NewID("guideline")
		}
		if err := dataStore.InsertGuideline(ctx, g); err != nil {
			log.Fatal().Err(err).Str("guideline", g.GuidanceNumber).Msg("insert failed")
		}
	}
	for _, u := range users {
		if u.ID == "" {
			u.ID = util.NewID("user")
		}
		if err := dataStore.InsertUser(ctx, u); err != nil {
			log.Fatal().Err(err).Str("user", u.UserName).Msg("insert failed")
		}
	}

	log.Info().Int("guidelines", len(guidelines)).Int("users", len(users)).Msg("seeding complete")
}
