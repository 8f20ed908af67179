// cmd/santa/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/command/core"
	grinchcmd "github.com/keshon/santa/internal/command/grinch"
	"github.com/keshon/santa/internal/config"
	"github.com/keshon/santa/internal/discord"
	"github.com/keshon/santa/internal/grinch"
	"github.com/keshon/santa/internal/middleware"
	"github.com/keshon/santa/internal/storage"
	"github.com/keshon/santa/internal/webhook"
	"github.com/keshon/santa/pkg/cmd"
)

func main() {
	log.Println("[INFO] Starting santa bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	bot, err := discord.NewBot(cfg, store, cmd.DefaultRegistry)
	if err != nil {
		log.Fatal(err)
	}

	router := grinch.NewRouter(
		webhook.New(bot.Session()),
		grinch.Identity{Name: cfg.WebhookName, AvatarURL: cfg.WebhookAvatarURL},
		grinch.MultiAuditor(grinch.LogAuditor{}, grinchcmd.StorageAuditor(store)),
	)
	command.RegisterCommand(cmd.DefaultRegistry, &grinchcmd.GrinchCommand{Router: router}, middleware.Default(cfg)...)
	command.RegisterCommand(cmd.DefaultRegistry, &core.LogCommand{}, middleware.Default(cfg)...)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
