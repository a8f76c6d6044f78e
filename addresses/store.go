package addresses

import (
	"context"
	"errors"
	"time"

	"tradedesk/db"
	"tradedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("address not found")

type Store interface {
	List(ctx context.Context, companyID, userID string) ([]models.Address, error)
	Get(ctx context.Context, companyID, userID, id string) (*models.Address, error)
	Upsert(ctx context.Context, a models.Address) error
	ClearDefault(ctx context.Context, companyID, userID, exceptID string) error
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) List(ctx context.Context, companyID, userID string) ([]models.Address, error) {
	cursor, err := db.AddressesCollection.Find(ctx,
		bson.M{"company_id": companyID, "user_id": userID},
		options.Find().SetSort(bson.D{{Key: "is_default", Value: -1}, {Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Address
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (MongoStore) Get(ctx context.Context, companyID, userID, id string) (*models.Address, error) {
	var a models.Address
	err := db.AddressesCollection.FindOne(ctx, bson.M{"_id": id, "company_id": companyID, "user_id": userID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert writes a by id, keeping the original created_at and owner.
func (MongoStore) Upsert(ctx context.Context, a models.Address) error {
	now := time.Now()
	set := bson.M{
		"full_name":    a.FullName,
		"company_name": a.CompanyName,
		"line1":        a.Line1,
		"line2":        a.Line2,
		"city":         a.City,
		"country":      a.Country,
		"phone":        a.Phone,
		"is_default":   a.IsDefault,
		"updated_at":   now,
	}
	_, err := db.AddressesCollection.UpdateOne(ctx,
		bson.M{"_id": a.ID, "company_id": a.CompanyID, "user_id": a.UserID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// id exists under another owner
		return ErrNotFound
	}
	return err
}

func (MongoStore) ClearDefault(ctx context.Context, companyID, userID, exceptID string) error {
	_, err := db.AddressesCollection.UpdateMany(ctx,
		bson.M{"company_id": companyID, "user_id": userID, "_id": bson.M{"$ne": exceptID}, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false}})
	return err
}
