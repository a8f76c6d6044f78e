package checkout

import (
	"context"
	"errors"

	"tradedesk/db"
	"tradedesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoPayments writes the payment rows checkout creates.
type MongoPayments struct{}

func (MongoPayments) FindByIdempotencyKey(ctx context.Context, companyID, userID, key string) (*models.Payment, error) {
	var p models.Payment
	err := db.PaymentsCollection.FindOne(ctx, bson.M{
		"company_id":      companyID,
		"user_id":         userID,
		"idempotency_key": key,
	}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (MongoPayments) Insert(ctx context.Context, p models.Payment) error {
	_, err := db.PaymentsCollection.InsertOne(ctx, p)
	if db.IsDuplicateKeyError(err) {
		return ErrDuplicatePayment
	}
	return err
}

type MongoProfiles struct{}

func (MongoProfiles) Profile(ctx context.Context, companyID, userID string) (*models.Profile, error) {
	var p models.Profile
	err := db.ProfilesCollection.FindOne(ctx, bson.M{"_id": userID, "company_id": companyID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
