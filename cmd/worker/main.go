package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/brainstorm-chat/internal/config"
	"github.com/suPer8Hu/brainstorm-chat/internal/db"
	"github.com/suPer8Hu/brainstorm-chat/internal/journal"
	"github.com/suPer8Hu/brainstorm-chat/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()
	if cfg.JournalDSN == "" {
		log.Fatalf("JOURNAL_DSN is required for the worker")
	}
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required for the worker")
	}

	gdb, err := db.Open(cfg.JournalDSN)
	if err != nil {
		log.Fatalf("journal db: %v", err)
	}
	repo := journal.NewRepo(gdb)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("journal migrate: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	//  strict concurrency control
	concurrency := cfg.WorkerConcurrency

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				run, err := rabbitmq.DecodeRun(d.Body)
				if err != nil {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleRun(ctx, repo, run); err != nil {
					log.Printf("worker=%d run %s status=%s failed cost=%s err=%v", workerID, run.ID, run.Status, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed run=%s err=%v", workerID, run.ID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				close(deliveries)
				wg.Wait()
				return
			}
			deliveries <- d
		}
	}
}

func handleRun(ctx context.Context, repo *journal.Repo, run *journal.Run) error {
	t0 := time.Now()
	if err := repo.SaveRun(ctx, run); err != nil {
		return err
	}
	if cost := time.Since(t0); cost > 500*time.Millisecond {
		log.Printf("run_timing run=%s status=%s save=%s", run.ID, run.Status, cost)
	}
	if run.Status != journal.RunRunning {
		log.Printf("run finished run=%s model=%s status=%s tokens=%d chars=%d took=%s",
			run.ID, run.Model, run.Status, run.Tokens, run.Chars, run.Duration())
	}
	return nil
}
