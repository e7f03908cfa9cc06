package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
	"github.com/suPer8Hu/brainstorm-chat/internal/config"
	"github.com/suPer8Hu/brainstorm-chat/internal/db"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi"
	"github.com/suPer8Hu/brainstorm-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/brainstorm-chat/internal/journal"
	"github.com/suPer8Hu/brainstorm-chat/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()

	client, err := ai.NewClient(cfg.AIConfig(log.Default()))
	if err != nil {
		log.Fatalf("openrouter: %v", err)
	}

	var streamer ai.Streamer = client

	// run journal: read through the repo, write through rabbit when configured
	var repo *journal.Repo
	if cfg.JournalDSN != "" {
		gdb, err := db.Open(cfg.JournalDSN)
		if err != nil {
			log.Fatalf("journal db: %v", err)
		}
		repo = journal.NewRepo(gdb)
		if err := repo.Migrate(context.Background()); err != nil {
			log.Fatalf("journal migrate: %v", err)
		}
	}

	var sink journal.Sink
	switch {
	case cfg.RabbitURL != "":
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit publisher: %v", err)
		}
		defer pub.Close()
		sink = pub
		log.Printf("journal via rabbit queue=%s", cfg.RabbitQueue)
	case repo != nil:
		sink = repo
		log.Printf("journal direct")
	}
	if sink != nil {
		streamer = journal.NewRecorder(client, sink, client.Model(), log.Default())
	}

	h := handlers.NewHandler(streamer, repo, client.Model())
	r := httpapi.NewRouter(h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening addr=%s model=%s", cfg.HTTPAddr, client.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
