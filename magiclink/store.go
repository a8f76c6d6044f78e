package magiclink

import (
	"context"
	"errors"
	"time"

	"tradedesk/db"
	"tradedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("magic link not found")

type Store interface {
	Insert(ctx context.Context, l models.MagicLink) error
	FindByHash(ctx context.Context, hash string) (*models.MagicLink, error)
	Revoke(ctx context.Context, companyID, id string, at time.Time) error
	// Consume counts one use if the link is still live at now. It reports
	// false when another request took the last use first.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) Insert(ctx context.Context, l models.MagicLink) error {
	_, err := db.MagicLinksCollection.InsertOne(ctx, l)
	return err
}

func (MongoStore) FindByHash(ctx context.Context, hash string) (*models.MagicLink, error) {
	var l models.MagicLink
	err := db.MagicLinksCollection.FindOne(ctx, bson.M{"token_hash": hash}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (MongoStore) Revoke(ctx context.Context, companyID, id string, at time.Time) error {
	res, err := db.MagicLinksCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := db.MagicLinksCollection.CountDocuments(ctx, bson.M{"_id": id, "company_id": companyID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (MongoStore) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"revoked_at": bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": now},
		"$or": bson.A{
			bson.M{"max_uses": 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$use_count", "$max_uses"}}},
		},
	}
	res, err := db.MagicLinksCollection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"use_count": 1}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
