package orders

import (
	"context"
	"errors"
	"time"

	"tradedesk/db"
	"tradedesk/lifecycle"
	"tradedesk/models"
	"tradedesk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("order not found")

// Filter scopes a listing. An empty UserID lists the whole tenant.
type Filter struct {
	CompanyID string
	UserID    string
	Status    string
	Page      utils.Page
}

type Store interface {
	List(ctx context.Context, f Filter) ([]models.Order, error)
	Get(ctx context.Context, companyID, id string) (*models.Order, error)
	Insert(ctx context.Context, o models.Order) error
	// UpdateReceiver applies fields only while the order is still Processing and
	// was created after createdAfter. It reports whether a row matched.
	UpdateReceiver(ctx context.Context, companyID, userID, id string, fields map[string]interface{}, createdAfter time.Time) (bool, error)
	InsertReceiver(ctx context.Context, r models.ShippingReceiver) error
	// FillReceiver sets receiver fields and moves a waiting order to Processing.
	FillReceiver(ctx context.Context, companyID, userID, id string, r models.ShippingReceiver) (bool, error)
	// SetStatus is a compare-and-set on the current status.
	SetStatus(ctx context.Context, companyID, id string, from, to lifecycle.OrderStatus) (bool, error)
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) List(ctx context.Context, f Filter) ([]models.Order, error) {
	filter := bson.M{"company_id": f.CompanyID}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "date", Value: -1}}).
		SetLimit(f.Page.Limit).
		SetSkip(f.Page.Skip)

	cursor, err := db.OrdersCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (MongoStore) Get(ctx context.Context, companyID, id string) (*models.Order, error) {
	var o models.Order
	err := db.OrdersCollection.FindOne(ctx, bson.M{"_id": id, "company_id": companyID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (MongoStore) Insert(ctx context.Context, o models.Order) error {
	_, err := db.OrdersCollection.InsertOne(ctx, o)
	return err
}

func (MongoStore) UpdateReceiver(ctx context.Context, companyID, userID, id string, fields map[string]interface{}, createdAfter time.Time) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"company_id": companyID,
		"user_id":    userID,
		"status":     string(lifecycle.OrderProcessing),
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$gt": createdAfter}},
			bson.M{"created_at": bson.M{"$exists": false}, "date": bson.M{"$gt": createdAfter}},
		},
	}
	res, err := db.OrdersCollection.UpdateOne(ctx, filter, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (MongoStore) InsertReceiver(ctx context.Context, r models.ShippingReceiver) error {
	_, err := db.ShippingReceiversCollection.InsertOne(ctx, r)
	return err
}

func (MongoStore) FillReceiver(ctx context.Context, companyID, userID, id string, r models.ShippingReceiver) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"company_id": companyID,
		"user_id":    userID,
		"status":     string(lifecycle.OrderWaitingInfo),
	}
	update := bson.M{"$set": bson.M{
		"receiver_name":    r.Name,
		"receiver_phone":   r.Phone,
		"receiver_address": r.Address,
		"status":           string(lifecycle.OrderProcessing),
	}}
	res, err := db.OrdersCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (MongoStore) SetStatus(ctx context.Context, companyID, id string, from, to lifecycle.OrderStatus) (bool, error) {
	res, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
