package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/koko-mojo-astro/poker-pool/internal/cache"
	"github.com/koko-mojo-astro/poker-pool/internal/config"
	"github.com/koko-mojo-astro/poker-pool/internal/database"
	"github.com/koko-mojo-astro/poker-pool/internal/game"
	"github.com/koko-mojo-astro/poker-pool/internal/server"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	logrus.SetLevel(log.GetLevel())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.RedisAddr != "" {
		if err := cache.Connect(ctx, cfg.RedisAddr); err != nil {
			log.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			log.WithField("addr", cfg.RedisAddr).Info("redis connected")
		}
	}
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.WithError(err).Warn("postgres unavailable, match persistence disabled")
		} else {
			log.Info("postgres connected")
		}
	}

	registry := game.NewRegistry()
	srv := server.New(registry, log, []byte(cfg.JWTSecret))

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
