package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"

	"vidtube/internal/config"
	"vidtube/internal/database"
	jwtsvc "vidtube/internal/pkg/jwt"
	"vidtube/internal/repository"
)

// Expired refresh tokens are rejected on use anyway, but they linger in the
// users table until the owner logs in again. This job empties those slots so
// the table does not accumulate dead sessions. Run it from cron.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)

	codec := jwtsvc.NewCodec(
		jwtsvc.Profile{Secret: []byte(cfg.AccessTokenSecret), TTL: cfg.AccessTTL},
		jwtsvc.Profile{Secret: []byte(cfg.RefreshTokenSecret), TTL: cfg.RefreshTTL},
	)

	ctx := context.Background()

	sessions, err := userRepo.ActiveSessions(ctx)
	if err != nil {
		log.Fatalf("auth_cleanup: list sessions: %v", err)
	}

	cleared := 0
	for userID, token := range sessions {
		_, err := codec.Verify(jwtsvc.KindRefresh, token)
		if err == nil {
			continue
		}
		if !errors.Is(err, jwtsvc.ErrExpired) {
			// Undecodable slots come from secret rotation or manual edits.
			// They can never be redeemed, so they are cleared too.
			log.Printf("auth_cleanup: undecodable slot user_id=%d err=%v", userID, err)
		}
		if err := userRepo.ClearRefreshToken(ctx, userID); err != nil {
			log.Fatalf("auth_cleanup: clear user_id=%d: %v", userID, err)
		}
		cleared++
	}

	log.Printf("auth_cleanup: done, scanned=%d cleared=%d", len(sessions), cleared)
}
