package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"geoattend/internal/attendance"
	"geoattend/internal/config"
	"geoattend/internal/live"
	"geoattend/internal/queue"
	"geoattend/internal/store"
)

// Worker consumes check-in messages and refreshes the per-session live
// attendee counters that back the polling view.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
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

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "geoattend:checkins")
	}

	records := attendance.NewPostgresRepository(db.Client)
	counts := live.NewCounter(redisClient.Client, cfg.LiveCountTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Kind != queue.KindCheckIn {
			continue
		}

		n, err := records.Count(ctx, msg.SessionID)
		if err != nil {
			log.Printf("count for session %s failed: %v", msg.SessionID, err)
			continue
		}
		if err := counts.Set(ctx, msg.SessionID, n); err != nil {
			log.Printf("live counter update for session %s failed: %v", msg.SessionID, err)
			continue
		}
		log.Printf("session %s live count is %d", msg.SessionID, n)
	}

	log.Println("worker stopped")
}
