package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/cache"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/repository"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/storage"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/events"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.uber.org/zap"
)

func setupStorage(t *testing.T) (*storage.Storage, *repository.MongoRepository, *miniredis.Miniredis) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)
	db, disconnect, err := repository.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { _ = disconnect(ctx) })

	repo := repository.NewMongoRepository(db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return storage.New(repo, cache.NewRedisCache(client, time.Hour), zap.NewNop()), repo, mr
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, repo, mr := setupStorage(t)
	broker := setupKafka(t)
	topic := "checkout-completed"
	createTopic(t, broker, topic)

	require.NoError(t, store.Save(ctx, "sess-123", []byte(`[{"id":"a","name":"Cap","price":"19.99","quantity":1}]`)))
	_, err := store.Load(ctx, "sess-123")
	require.NoError(t, err)

	writer := events.NewKafkaWriter(topic, broker)
	pub := events.NewPublisher(writer)
	require.NoError(t, pub.PublishCheckoutCompleted(ctx, events.CheckoutCompleted{
		CheckoutSessionID: "cs_test_123",
		CartSession:       "sess-123",
		AmountTotal:       1999,
		Currency:          "gbp",
		CompletedAt:       time.Now().UTC(),
	}))
	require.NoError(t, pub.Close())

	p := NewPoller(NewKafkaReader(topic, "storefront-test", broker), store, zap.NewNop())
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := repo.GetCart(ctx, "sess-123")
		return err != nil
	}, 20*time.Second, 500*time.Millisecond, "cart was not cleared")

	require.Eventually(t, func() bool {
		v, err := mr.Get("storefront:cart:sess-123")
		return err == nil && v == `[]`
	}, 5*time.Second, 100*time.Millisecond, "cache still holds the paid cart")
}
