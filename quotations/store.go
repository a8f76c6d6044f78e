package quotations

import (
	"context"
	"errors"

	"tradedesk/db"
	"tradedesk/lifecycle"
	"tradedesk/models"
	"tradedesk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("quotation not found")

type Filter struct {
	CompanyID string
	UserID    string
	View      lifecycle.QuotationStatus
	Page      utils.Page
}

type Store interface {
	List(ctx context.Context, f Filter) ([]models.Quotation, error)
	Get(ctx context.Context, companyID, id string) (*models.Quotation, error)
	Insert(ctx context.Context, q models.Quotation) error
	// SetStatus is a compare-and-set on the stored status.
	SetStatus(ctx context.Context, companyID, id, from, to string, selected *int) (bool, error)
	SetSelectedOption(ctx context.Context, companyID, id, status string, selected int) (bool, error)
	LinkOrder(ctx context.Context, companyID, id, orderID string) error
}

// Stored casings seen for each non-pending view; everything else reads as pending.
var (
	approvedCasings = []string{"approved", "Approved", "APPROVED", "confirmed", "Confirmed", "CONFIRMED", "accepted", "Accepted"}
	rejectedCasings = []string{"rejected", "Rejected", "REJECTED", "declined", "Declined"}
)

func viewFilter(v lifecycle.QuotationStatus) interface{} {
	switch v {
	case lifecycle.QuotationApproved:
		return bson.M{"$in": approvedCasings}
	case lifecycle.QuotationRejected:
		return bson.M{"$in": rejectedCasings}
	default:
		return bson.M{"$nin": append(append([]string{}, approvedCasings...), rejectedCasings...)}
	}
}

type MongoStore struct{}

func NewMongoStore() *MongoStore { return &MongoStore{} }

func (MongoStore) List(ctx context.Context, f Filter) ([]models.Quotation, error) {
	filter := bson.M{"company_id": f.CompanyID}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.View != "" {
		filter["status"] = viewFilter(f.View)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(f.Page.Limit).
		SetSkip(f.Page.Skip)

	cursor, err := db.QuotationsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Quotation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (MongoStore) Get(ctx context.Context, companyID, id string) (*models.Quotation, error) {
	var q models.Quotation
	err := db.QuotationsCollection.FindOne(ctx, bson.M{"_id": id, "company_id": companyID}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (MongoStore) Insert(ctx context.Context, q models.Quotation) error {
	_, err := db.QuotationsCollection.InsertOne(ctx, q)
	return err
}

func (MongoStore) SetStatus(ctx context.Context, companyID, id, from, to string, selected *int) (bool, error) {
	set := bson.M{"status": to}
	if selected != nil {
		set["selected_option"] = *selected
	}
	res, err := db.QuotationsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "status": from},
		bson.M{"$set": set, "$currentDate": bson.M{"updated_at": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (MongoStore) SetSelectedOption(ctx context.Context, companyID, id, status string, selected int) (bool, error) {
	res, err := db.QuotationsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "status": status},
		bson.M{"$set": bson.M{"selected_option": selected}, "$currentDate": bson.M{"updated_at": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (MongoStore) LinkOrder(ctx context.Context, companyID, id, orderID string) error {
	_, err := db.QuotationsCollection.UpdateOne(ctx,
		bson.M{"_id": id, "company_id": companyID, "order_id": bson.M{"$in": bson.A{nil, ""}}},
		bson.M{"$set": bson.M{"order_id": orderID}})
	return err
}
