package cart

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

var (
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// Store is the persistence the cart needs. MongoStore implements it.
type Store interface {
	Items(ctx context.Context, companyID, userID string) ([]models.CartItem, error)
	Add(ctx context.Context, item models.CartItem) error
	SetQuantity(ctx context.Context, companyID, userID, productID string, qty int) error
	Remove(ctx context.Context, companyID, userID, productID string) error
	Clear(ctx context.Context, companyID, userID string) error
	Product(ctx context.Context, companyID, productID string) (*models.Product, error)
	Products(ctx context.Context, companyID string, ids []string) (map[string]models.Product, error)
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func itemFilter(companyID, userID, productID string) bson.M {
	return bson.M{"company_id": companyID, "user_id": userID, "product_id": productID}
}

func (MongoStore) Items(ctx context.Context, companyID, userID string) ([]models.CartItem, error) {
	cursor, err := db.CartCollection.Find(ctx,
		bson.M{"company_id": companyID, "user_id": userID},
		options.Find().SetSort(bson.M{"added_at": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Add increments quantity if the product is already in the cart, otherwise
// inserts it with the given snapshot.
func (MongoStore) Add(ctx context.Context, item models.CartItem) error {
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$setOnInsert": bson.M{
			"_id":          item.ID,
			"product_name": item.ProductName,
			"unit_price":   item.UnitPrice,
			"currency":     item.Currency,
			"image_url":    item.ImageURL,
			"added_at":     time.Now(),
		},
	}
	_, err := db.CartCollection.UpdateOne(ctx,
		itemFilter(item.CompanyID, item.UserID, item.ProductID), update,
		options.Update().SetUpsert(true))
	return err
}

func (MongoStore) SetQuantity(ctx context.Context, companyID, userID, productID string, qty int) error {
	res, err := db.CartCollection.UpdateOne(ctx,
		itemFilter(companyID, userID, productID),
		bson.M{"$set": bson.M{"quantity": qty}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (MongoStore) Remove(ctx context.Context, companyID, userID, productID string) error {
	res, err := db.CartCollection.DeleteOne(ctx, itemFilter(companyID, userID, productID))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (MongoStore) Clear(ctx context.Context, companyID, userID string) error {
	_, err := db.CartCollection.DeleteMany(ctx, bson.M{"company_id": companyID, "user_id": userID})
	return err
}

func (MongoStore) Product(ctx context.Context, companyID, productID string) (*models.Product, error) {
	var p models.Product
	err := db.ProductsCollection.FindOne(ctx, bson.M{"_id": productID, "company_id": companyID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (MongoStore) Products(ctx context.Context, companyID string, ids []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := db.ProductsCollection.Find(ctx, bson.M{"company_id": companyID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
