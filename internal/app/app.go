package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/config"
	"github.com/halcyonlabs/authbase/internal/db"
	"github.com/halcyonlabs/authbase/internal/repository"
	"github.com/halcyonlabs/authbase/internal/service"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	AuthService      *service.AuthService
	UserService      *service.UserService
	OAuthService     *service.OAuthService
	EmailService     *service.EmailService
	RateLimitService *service.RateLimitService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	rateLimitRepository := repository.NewRateLimitRepository(database)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	rateLimitService := service.NewRateLimitService(rateLimitRepository)
	oauthService := service.NewOAuthService(
		cfg.AppURL,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.LinkedInClientID,
		cfg.LinkedInClientSecret,
	)
	authService := service.NewAuthService(
		database,
		userRepository,
		tokenRepository,
		sessionRepository,
		rateLimitService,
		emailService,
		cfg.FrontendURL,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.SessionExpiry,
		cfg.TokenMagicLinkExpiry,
		cfg.TokenPasswordResetExpiry,
		cfg.TokenEmailVerifyExpiry,
	)
	userService := service.NewUserService(userRepository)

	return &App{
		Cfg:              cfg,
		DB:               database,
		AuthService:      authService,
		UserService:      userService,
		OAuthService:     oauthService,
		EmailService:     emailService,
		RateLimitService: rateLimitService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
