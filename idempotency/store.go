package idempotency

import (
	"context"
	"errors"

	"tradedesk/db"
	"tradedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicate = errors.New("idempotency key already used")
	ErrNotFound  = errors.New("idempotency record not found")
)

type Store interface {
	Insert(ctx context.Context, rec models.IdempotencyRecord) error
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, key string, response map[string]interface{}) error
	Delete(ctx context.Context, key string) error
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) Insert(ctx context.Context, rec models.IdempotencyRecord) error {
	_, err := db.IdempotencyCollection.InsertOne(ctx, rec)
	if db.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (MongoStore) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := db.IdempotencyCollection.FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (MongoStore) SaveResponse(ctx context.Context, key string, response map[string]interface{}) error {
	_, err := db.IdempotencyCollection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"response": response}})
	return err
}

func (MongoStore) Delete(ctx context.Context, key string) error {
	_, err := db.IdempotencyCollection.DeleteOne(ctx, bson.M{"key": key})
	return err
}
