package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/commerce-backoffice/internal/config"
	"github.com/example/commerce-backoffice/internal/infrastructure/kafka"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
	"github.com/example/commerce-backoffice/internal/tenant"
)

// The projector binary keeps replica Redis snapshot caches warm by
// consuming the ledger topic. Per-pair sequence deduplication makes the
// apply idempotent, so consumer group rebalances and replays are safe. The
// in-process snapshot path in the API stays synchronous; this consumer only
// serves read replicas.
func main() {
	config.Load()

	brokers := config.Brokers("KAFKA_BROKERS", "localhost:9092")
	topic := config.String("KAFKA_TOPIC", "stock-ledger")
	groupID := config.String("KAFKA_GROUP_ID", "stock-projector")
	redisAddr := config.String("REDIS_ADDR", "localhost:6379")

	log.Println("[Projector] ========================================")
	log.Println("[Projector] Replica snapshot cache projector")
	log.Println("[Projector] ========================================")
	log.Printf("[Projector] Kafka: %v, topic: %s", brokers, topic)
	log.Printf("[Projector] Redis: %s", redisAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: config.String("REDIS_PASS", ""),
	})

	var mu sync.Mutex
	caches := make(map[string]*store.RedisSnapshotCache)
	cacheFor := func(tenantID string) *store.RedisSnapshotCache {
		mu.Lock()
		defer mu.Unlock()
		c, ok := caches[tenantID]
		if !ok {
			c = store.NewRedisSnapshotCache(client, tenantID)
			caches[tenantID] = c
		}
		return c
	}

	handler := func(ctx context.Context, key, value []byte) error {
		var envelope tenant.EntryEnvelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}

		entry := envelope.Entry
		applied, err := cacheFor(envelope.TenantID).ApplyOnce(ctx,
			entry.VariantID, entry.LocationID, entry.Sequence, entry.Delta)
		if err != nil {
			return err
		}
		if !applied {
			log.Printf("[Projector] skipped stale entry %s seq=%d", entry.PairKey(), entry.Sequence)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(brokers, topic, groupID)
	defer consumer.Close()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[Projector] Shutting down...")
		cancel()
	}()

	log.Println("[Projector] Consuming...")
	if err := consumer.Consume(ctx, handler); err != nil && ctx.Err() == nil {
		log.Fatalf("[Projector] Consumer error: %v", err)
	}
}
