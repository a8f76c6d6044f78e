package shipping

import (
	"context"
	"errors"

	"tradedesk/db"
	"tradedesk/models"
	"tradedesk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("shipment not found")

// Media array fields.
const (
	fieldImages = "images_urls"
	fieldVideos = "videos_urls"
)

type Filter struct {
	CompanyID string
	UserID    string
	Status    string
	Page      utils.Page
}

type Store interface {
	List(ctx context.Context, f Filter) ([]models.Shipment, error)
	Get(ctx context.Context, companyID, id string) (*models.Shipment, error)
	// Open inserts s unless the order already has a shipment, and returns the stored row.
	Open(ctx context.Context, s models.Shipment) (*models.Shipment, error)
	// Update sets fields; a nil value unsets the field.
	Update(ctx context.Context, companyID, id string, fields map[string]interface{}) error
	PushMedia(ctx context.Context, companyID, id, field string, urls []string) error
	// PullMedia reports whether url was present.
	PullMedia(ctx context.Context, companyID, id, field, url string) (bool, error)
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) List(ctx context.Context, f Filter) ([]models.Shipment, error) {
	filter := bson.M{"company_id": f.CompanyID}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(f.Page.Limit).
		SetSkip(f.Page.Skip)

	cursor, err := db.ShippingCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Shipment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (MongoStore) Get(ctx context.Context, companyID, id string) (*models.Shipment, error) {
	var s models.Shipment
	err := db.ShippingCollection.FindOne(ctx, bson.M{"_id": id, "company_id": companyID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (MongoStore) Open(ctx context.Context, s models.Shipment) (*models.Shipment, error) {
	filter := bson.M{"company_id": s.CompanyID, "order_id": s.OrderID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Shipment
	err := db.ShippingCollection.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": s}, opts).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (MongoStore) Update(ctx context.Context, companyID, id string, fields map[string]interface{}) error {
	set, unset := bson.M{}, bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := db.ShippingCollection.UpdateOne(ctx, bson.M{"_id": id, "company_id": companyID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (MongoStore) PushMedia(ctx context.Context, companyID, id, field string, urls []string) error {
	res, err := db.ShippingCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID},
		bson.M{
			"$push": bson.M{field: bson.M{"$each": urls}},
			"$currentDate": bson.M{"updated_at": true},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (MongoStore) PullMedia(ctx context.Context, companyID, id, field, url string) (bool, error) {
	res, err := db.ShippingCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID},
		bson.M{
			"$pull": bson.M{field: url},
			"$currentDate": bson.M{"updated_at": true},
		})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}
