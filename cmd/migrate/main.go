package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/shared/config"
	"github.com/radieske/rps-wager-platform/internal/shared/db"
	"github.com/radieske/rps-wager-platform/internal/shared/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [command] [args]")
		fmt.Fprintln(os.Stderr, "Commands: up, up-to VERSION, down, down-to VERSION, status, redo, version")
	}
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}
	log, err := logger.New("migrate", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 1)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	log.Info("running migration", zap.String("command", args[0]))
	if err := db.Migrate(ctx, pg, args[0], args[1:]...); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migration finished", zap.String("command", args[0]))
}
