package payments

import (
	"context"
	"errors"
	"regexp"

	"tradedesk/db"
	"tradedesk/models"
	"tradedesk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("payment not found")

// Filter matches any of Statuses when set, ignoring case and surrounding space.
type Filter struct {
	CompanyID string
	UserID    string
	Statuses  []string
	Page      utils.Page
}

// StatusTotal is one (raw status, currency) bucket.
type StatusTotal struct {
	Status   string  `bson:"status"`
	Currency string  `bson:"currency"`
	Count    int     `bson:"count"`
	Amount   float64 `bson:"amount"`
}

type Store interface {
	List(ctx context.Context, f Filter) ([]models.Payment, error)
	Get(ctx context.Context, companyID, id string) (*models.Payment, error)
	// SetStatus is a compare-and-set on the raw stored status.
	SetStatus(ctx context.Context, companyID, id, from, to string) (bool, error)
	SetOrderID(ctx context.Context, companyID, id, orderID string) error
	SetProof(ctx context.Context, companyID, id, url string) error
	Totals(ctx context.Context, companyID string) ([]StatusTotal, error)
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) List(ctx context.Context, f Filter) ([]models.Payment, error) {
	filter := bson.M{"company_id": f.CompanyID}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": StatusPatterns(f.Statuses)}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(f.Page.Limit).
		SetSkip(f.Page.Skip)

	cursor, err := db.PaymentsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Payment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatusPatterns turns status aliases into anchored case-insensitive regexes.
func StatusPatterns(aliases []string) bson.A {
	out := make(bson.A, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, primitive.Regex{Pattern: `^\s*` + regexp.QuoteMeta(a) + `\s*$`, Options: "i"})
	}
	return out
}

func (MongoStore) Get(ctx context.Context, companyID, id string) (*models.Payment, error) {
	var p models.Payment
	err := db.PaymentsCollection.FindOne(ctx, bson.M{"_id": id, "company_id": companyID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (MongoStore) SetStatus(ctx context.Context, companyID, id, from, to string) (bool, error) {
	res, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "status": from},
		bson.M{"$set": bson.M{"status": to}, "$currentDate": bson.M{"updated_at": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (MongoStore) SetOrderID(ctx context.Context, companyID, id, orderID string) error {
	_, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID},
		bson.M{"$set": bson.M{"order_id": orderID}})
	return err
}

func (MongoStore) SetProof(ctx context.Context, companyID, id, url string) error {
	res, err := db.PaymentsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID},
		bson.M{"$set": bson.M{"proof_url": url}, "$currentDate": bson.M{"updated_at": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (MongoStore) Totals(ctx context.Context, companyID string) ([]StatusTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"company_id": companyID}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"status": "$status", "currency": "$currency"},
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":      0,
			"status":   "$_id.status",
			"currency": "$_id.currency",
			"count":    1,
			"amount":   1,
		}}},
	}
	cursor, err := db.PaymentsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []StatusTotal
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
