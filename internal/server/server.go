// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the application together and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/config"
	"codeberg.org/oliverandrich/reflections-api/internal/database"
	"codeberg.org/oliverandrich/reflections-api/internal/handlers"
	"codeberg.org/oliverandrich/reflections-api/internal/i18n"
	mw "codeberg.org/oliverandrich/reflections-api/internal/middleware"
	"codeberg.org/oliverandrich/reflections-api/internal/repository"
	authsvc "codeberg.org/oliverandrich/reflections-api/internal/services/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/services/mailer"
	"codeberg.org/oliverandrich/reflections-api/internal/services/password"
	"codeberg.org/oliverandrich/reflections-api/internal/services/reset"
	"codeberg.org/oliverandrich/reflections-api/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Services
	repo := repository.New(db)
	passwords := password.NewCodec(cfg.Auth.BcryptCost)
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	resets := reset.NewManager(repo, passwords, cfg.Reset.TokenExpiry)

	var mail authsvc.Mailer
	if cfg.SMTP.Host != "" {
		mail, err = mailer.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to create mailer: %w", err)
		}
	} else {
		slog.Warn("SMTP is not configured, password-reset mail is disabled")
		mail = mailer.Disabled{}
	}

	service := authsvc.NewService(repo, passwords, tokens, resets, mail)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, service, tokens, repo)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, cfg *config.Config, service *authsvc.Service, tokens *token.Service, repo *repository.Repository) {
	h := handlers.NewAuth(service, &cfg.Auth)
	authenticate := mw.Authenticate(tokens, repo, cfg.Auth.CookieName)

	e.GET("/health", handlers.Health)

	authGroup := e.Group("/api/v1/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/forgotpassword", h.ForgotPassword)
	authGroup.PUT("/resetpassword/:resettoken", h.ResetPassword)

	protected := authGroup.Group("", authenticate)
	protected.GET("/logout", h.Logout)
	protected.GET("/me", h.Me)
	protected.PUT("/updatedetails", h.UpdateDetails)
	protected.PUT("/updatepassword", h.UpdatePassword)
	protected.DELETE("/me", h.Delete)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
