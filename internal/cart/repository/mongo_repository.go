package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

// CartDocument is the stored form of a cart session. Payload is the
// serialized line item list.
type CartDocument struct {
	ID        string    `bson:"_id,omitempty"`
	SessionID string    `bson:"session_id"`
	Payload   []byte    `bson:"payload"`
	ItemCount int       `bson:"item_count"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CartRepository is the durable store behind the cart cache.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*CartDocument, error)
	SaveCart(ctx context.Context, sessionID string, payload []byte, itemCount int) error
	DeleteCart(ctx context.Context, sessionID string) error
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, sessionID string) (*CartDocument, error) {
	var doc CartDocument

	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &doc, nil
}

// SaveCart replaces the stored payload, creating the document on first save.
func (m *MongoRepository) SaveCart(ctx context.Context, sessionID string, payload []byte, itemCount int) error {
	now := time.Now().UTC()

	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"payload":    payload,
			"item_count": itemCount,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"session_id": sessionID,
			"created_at": now,
		},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

// CreateIndexes enforces one document per session. Carts never expire: no
// TTL index.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
