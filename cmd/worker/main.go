package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/config"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/metrics"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/queue"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/report"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/store"
)

// Worker consumes report delivery jobs, runs the mock gateway, and
// marks reports sent.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	reports := report.NewPostgresStore(db.Client)
	if err := reports.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "edp:reports")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for delivery jobs...")
	for msg := range messages {
		if msg.Type != report.MsgSend {
			continue
		}

		id := string(msg.Body)
		r, err := reports.MarkSent(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrInvalidTransition) {
				log.Printf("report %s already sent, skipping", id)
			} else {
				log.Printf("mark sent %s failed: %v", id, err)
			}
			continue
		}

		if err := report.Deliver(r); err != nil {
			log.Printf("deliver %s failed: %v", id, err)
			continue
		}
		metrics.ReportsSent.Inc()
	}

	log.Println("worker stopped")
}
