package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/antlu/community-bot/internal/app"
	"github.com/antlu/community-bot/internal/config"
	"github.com/antlu/community-bot/internal/crypto"
	"github.com/antlu/community-bot/internal/discord"
	"github.com/antlu/community-bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	cipher, err := crypto.NewCipher(cfg.TranscriptKey)
	if err != nil {
		lg.Fatal("Error preparing transcript cipher", zap.Error(err))
	}

	ledger, err := app.OpenLedger(cfg.DBPath, cipher)
	if err != nil {
		lg.Fatal("Error opening ledger", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer ledger.Close()

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		lg.Fatal("Error creating session", zap.Error(err))
	}

	bot := app.New(session, cfg, lg, app.WithLedger(ledger))
	bot.Register(session.Session)

	if err := session.Open(); err != nil {
		lg.Fatal("Error connecting to Discord", zap.Error(err))
	}
	defer session.Close()

	lg.Info("Started refreshing application (/) commands")
	if err := bot.SyncCommands(); err != nil {
		lg.Error("Error refreshing commands", zap.Error(err))
	} else {
		lg.Info("Successfully reloaded application (/) commands")
	}

	if cfg.MetricsAddr != "" {
		srv := bot.StartServer(cfg.MetricsAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				lg.Warn("Error shutting down server", zap.Error(err))
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	lg.Info("Shutting down")
	bot.Close()
}
