package models

import "time"

// Order is a customer request for goods, created from a storefront submission
// or an approved quotation. Orders are never deleted.
type Order struct {
	ID              string     `json:"id" bson:"_id,omitempty"`
	Reference       string     `json:"reference" bson:"reference"`
	CompanyID       string     `json:"companyId" bson:"company_id"`
	UserID          string     `json:"userId" bson:"user_id"`
	QuotationID     string     `json:"quotationId,omitempty" bson:"quotation_id,omitempty"`
	PaymentID       string     `json:"paymentId,omitempty" bson:"payment_id,omitempty"`
	ProductID       string     `json:"productId" bson:"product_id"`
	ProductName     string     `json:"productName" bson:"product_name"`
	Quantity        int        `json:"quantity" bson:"quantity"`
	Amount          float64    `json:"amount" bson:"amount"`
	Currency        string     `json:"currency" bson:"currency"`
	Status          string     `json:"status" bson:"status"`
	Country         string     `json:"country" bson:"country"` // immutable once set
	ReceiverName    string     `json:"receiverName" bson:"receiver_name"`
	ReceiverPhone   string     `json:"receiverPhone" bson:"receiver_phone"`
	ReceiverAddress string     `json:"receiverAddress" bson:"receiver_address"`
	Date            time.Time  `json:"date" bson:"date"`
	CreatedAt       *time.Time `json:"createdAt,omitempty" bson:"created_at,omitempty"`
}

// CreatedInstant prefers the precise creation timestamp and falls back to the date.
func (o Order) CreatedInstant() time.Time {
	if o.CreatedAt != nil && !o.CreatedAt.IsZero() {
		return *o.CreatedAt
	}
	return o.Date
}

// HasReceiver reports whether all receiver fields are filled in.
func (o Order) HasReceiver() bool {
	return o.ReceiverName != "" && o.ReceiverPhone != "" && o.ReceiverAddress != ""
}
