// Command admin manages helpdesk accounts from the shell.
//
//	admin create-user --username alice --password secret123 --staff
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "create-user" {
		fmt.Fprintln(os.Stderr, "usage: admin create-user --username NAME --password PASS [--email EMAIL] [--first-name F] [--last-name L] [--staff]")
		os.Exit(2)
	}

	flags := pflag.NewFlagSet("create-user", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	var in service.NewUserInput
	flags.StringVar(&in.Username, "username", "", "login name")
	flags.StringVar(&in.Password, "password", "", "password, at least 8 characters")
	flags.StringVar(&in.Email, "email", "", "email address")
	flags.StringVar(&in.FirstName, "first-name", "", "first name")
	flags.StringVar(&in.LastName, "last-name", "", "last name")
	flags.BoolVar(&in.IsStaff, "staff", false, "grant staff access")
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		log.Fatal("POSTGRES_DSN is required to create users")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	authService := service.NewAuthService(*cfg, repository.NewUserRepository(pg.PoolHandle()))
	user, err := authService.CreateUser(ctx, in)
	if err != nil {
		logger.Fatal("failed to create user", zap.Error(err))
	}
	logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username), zap.Bool("staff", user.IsStaff))
}
