package models

import "time"

// QuotationOption is one priced alternative the approver can select.
type QuotationOption struct {
	Label        string  `json:"label" bson:"label"`
	UnitPrice    float64 `json:"unitPrice" bson:"unit_price"`
	LeadTimeDays int     `json:"leadTimeDays,omitempty" bson:"lead_time_days,omitempty"`
}

// Quotation is a priced proposal a client can accept, precursor to an order.
type Quotation struct {
	ID              string            `json:"id" bson:"_id,omitempty"`
	Reference       string            `json:"reference" bson:"reference"`
	CompanyID       string            `json:"companyId" bson:"company_id"`
	UserID          string            `json:"userId" bson:"user_id"`
	ProductID       string            `json:"productId" bson:"product_id"`
	ProductName     string            `json:"productName" bson:"product_name"`
	Quantity        int               `json:"quantity" bson:"quantity"`
	Amount          float64           `json:"amount" bson:"amount"`
	Currency        string            `json:"currency" bson:"currency"`
	Status          string            `json:"status" bson:"status"` // stored casing varies
	Options         []QuotationOption `json:"options,omitempty" bson:"options,omitempty"`
	SelectedOption  *int              `json:"selectedOption,omitempty" bson:"selected_option,omitempty"`
	Country         string            `json:"country" bson:"country"`
	ReceiverName    string            `json:"receiverName,omitempty" bson:"receiver_name,omitempty"`
	ReceiverPhone   string            `json:"receiverPhone,omitempty" bson:"receiver_phone,omitempty"`
	ReceiverAddress string            `json:"receiverAddress,omitempty" bson:"receiver_address,omitempty"`
	OrderID         string            `json:"orderId,omitempty" bson:"order_id,omitempty"`
	CreatedAt       time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updated_at"`
}

// MagicLink grants scoped access to one quotation without a login.
// Only the keyed hash of the token is stored.
type MagicLink struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	TokenHash   string     `json:"-" bson:"token_hash"`
	CompanyID   string     `json:"companyId" bson:"company_id"`
	QuotationID string     `json:"quotationId" bson:"quotation_id"`
	Email       string     `json:"email,omitempty" bson:"email,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt" bson:"expires_at"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty" bson:"revoked_at,omitempty"`
	MaxUses     int        `json:"maxUses" bson:"max_uses"` // 0 means unlimited
	UseCount    int        `json:"useCount" bson:"use_count"`
	CreatedBy   string     `json:"createdBy" bson:"created_by"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
}
