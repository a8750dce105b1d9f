package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"vidtube/internal/config"
	"vidtube/internal/database"
	"vidtube/internal/domain"
	"vidtube/internal/repository"
)

// Demo accounts for local development. Run once against an empty database.
var seedUsers = []struct {
	Username string
	Email    string
	FullName string
	Password string
}{
	{"alice", "alice@example.com", "Alice Doe", "alice-password"},
	{"bob", "bob@example.com", "Bob Stone", "bob-password"},
	{"carol", "carol@example.com", "Carol Finch", "carol-password"},
}

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
	if err := userRepo.Migrate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	created := 0

	for _, su := range seedUsers {
		exists, err := userRepo.ExistsByUsernameOrEmail(ctx, su.Username, su.Email)
		if err != nil {
			log.Fatalf("seed: check %s: %v", su.Username, err)
		}
		if exists {
			log.Printf("seed: skip user=%s, already present", su.Username)
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("seed: hash %s: %v", su.Username, err)
		}

		user := &domain.User{
			Username:     su.Username,
			Email:        su.Email,
			FullName:     su.FullName,
			PasswordHash: string(hash),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("seed: create %s: %v", su.Username, err)
		}
		log.Printf("seed: created user=%s id=%d", user.Username, user.ID)
		created++
	}

	log.Printf("seed: done, created=%d", created)
}
