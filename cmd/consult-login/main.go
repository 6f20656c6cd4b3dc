package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"consult-client/internal/api"
	"consult-client/internal/auth"
	"consult-client/internal/config"
	"consult-client/internal/models"
)

// Logs in against the consultation backend and persists the credential
// pair for the other clients. `consult-login -logout` clears it instead.
func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	credPath := cfg.Auth.CredentialsFile
	if credPath == "" {
		if credPath, err = auth.DefaultPath(); err != nil {
			logger.Fatal("resolve credential path", zap.Error(err))
		}
	}
	store := auth.NewStore(credPath, logger)

	if len(os.Args) > 1 && os.Args[1] == "-logout" {
		if err := store.Clear(); err != nil {
			logger.Fatal("logout", zap.Error(err))
		}
		fmt.Println("logged out")
		return
	}

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: consult-login <email> <password> | consult-login -logout")
		os.Exit(2)
	}

	client, err := api.New(cfg.API.BaseURL, api.Options{Timeout: cfg.API.Timeout, Logger: logger})
	if err != nil {
		logger.Fatal("api client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := client.Auth().Login(ctx, models.LoginRequest{Email: os.Args[1], Password: os.Args[2]})
	if err != nil {
		logger.Fatal("login", zap.Error(err))
	}
	if err := store.Save(resp.Token, resp.User); err != nil {
		logger.Fatal("persist credentials", zap.Error(err))
	}
	fmt.Printf("logged in as %s (%s)\n", resp.User.Name, resp.User.Email)
}
