package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"partyroom/internal/app"
	"partyroom/internal/config"
	"partyroom/internal/logger"
	httpTransport "partyroom/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Logging.Level, cfg.IsDevelopment())
	defer log.Sync()

	log.Info("starting party room server",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Addr()),
		zap.Int("maxPlayers", cfg.Room.MaxPlayers),
	)

	registry := app.NewRoomRegistry(log, cfg.Room.MaxPlayers)
	defer registry.Close()

	server := httpTransport.NewServer(cfg, registry, log)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
