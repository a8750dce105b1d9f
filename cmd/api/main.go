package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"vidtube/internal/config"
	"vidtube/internal/database"
	"vidtube/internal/middleware"
	"vidtube/internal/modules/auth"
	jwtsvc "vidtube/internal/pkg/jwt"
	"vidtube/internal/repository"
)

func main() {
	// Local development convenience; missing .env is fine.
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

	codec := jwtsvc.NewCodec(
		jwtsvc.Profile{Secret: []byte(cfg.AccessTokenSecret), TTL: cfg.AccessTTL},
		jwtsvc.Profile{Secret: []byte(cfg.RefreshTokenSecret), TTL: cfg.RefreshTTL},
	)

	authService := auth.NewService(userRepo, userRepo, codec)
	authHandler := auth.NewHandler(
		authService,
		cfg.CookieSecure,
		cfg.CookieSameSite,
		cfg.CookiePath,
		cfg.AccessTTL,
		cfg.RefreshTTL,
	)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(codec, userRepo))
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
