package db

import (
	"context"
	"fmt"
	"time"

	"tradedesk/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	Client *mongo.Client

	QuotationsCollection        *mongo.Collection
	OrdersCollection            *mongo.Collection
	ShippingCollection          *mongo.Collection
	PaymentsCollection          *mongo.Collection
	AddressesCollection         *mongo.Collection
	ShippingReceiversCollection *mongo.Collection
	ProfilesCollection          *mongo.Collection
	CompaniesCollection         *mongo.Collection
	CartCollection              *mongo.Collection
	ProductsCollection          *mongo.Collection
	MagicLinksCollection        *mongo.Collection
	IdempotencyCollection       *mongo.Collection
)

// Connect opens the client, pings it and binds the collection handles.
func Connect(ctx context.Context, uri, dbName string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	Client = c

	d := c.Database(dbName)
	QuotationsCollection = d.Collection("quotations")
	OrdersCollection = d.Collection("orders")
	ShippingCollection = d.Collection("shipping")
	PaymentsCollection = d.Collection("payments")
	AddressesCollection = d.Collection("client_addresses")
	ShippingReceiversCollection = d.Collection("shipping_receivers")
	ProfilesCollection = d.Collection("profiles")
	CompaniesCollection = d.Collection("companies")
	CartCollection = d.Collection("carts")
	ProductsCollection = d.Collection("products")
	MagicLinksCollection = d.Collection("magic_links")
	IdempotencyCollection = d.Collection("idempotency")

	logging.Logger.Info("connected to MongoDB", zap.String("db", dbName))
	return nil
}

// EnsureIndexes creates every index the service relies on.
func EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		CompaniesCollection: {
			{Keys: bson.M{"slug": 1}, Options: options.Index().SetUnique(true).SetName("unique_slug")},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		QuotationsCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ShippingCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("one_shipment_per_order")},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_checkout_key").
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
			},
		},
		CartCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AddressesCollection: {
			{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		MagicLinksCollection: {
			{Keys: bson.M{"token_hash": 1}, Options: options.Index().SetUnique(true).SetName("unique_token_hash")},
		},
		IdempotencyCollection: {
			{Keys: bson.M{"key": 1}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, idxs := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idxs); err != nil {
			return fmt.Errorf("indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Disconnect closes the client if Connect succeeded.
func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		logging.Logger.Warn("mongo disconnect", zap.Error(err))
	}
}

// IsDuplicateKeyError detects unique index violations (code 11000).
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
