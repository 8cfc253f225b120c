package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/app"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/logging"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment may be set already

	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("startup failed")
	}
	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
