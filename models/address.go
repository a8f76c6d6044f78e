package models

import "time"

// Address is a reusable delivery destination owned by a client account.
type Address struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	CompanyID   string    `json:"companyId" bson:"company_id"`
	UserID      string    `json:"userId" bson:"user_id"`
	FullName    string    `json:"fullName" bson:"full_name" validate:"required,max=120"`
	CompanyName string    `json:"companyName,omitempty" bson:"company_name,omitempty" validate:"max=120"`
	Line1       string    `json:"line1" bson:"line1" validate:"required,max=200"`
	Line2       string    `json:"line2,omitempty" bson:"line2,omitempty" validate:"max=200"`
	City        string    `json:"city" bson:"city" validate:"required,max=100"`
	Country     string    `json:"country" bson:"country" validate:"required,iso3166_1_alpha2"`
	Phone       string    `json:"phone" bson:"phone" validate:"required,min=5,max=32"`
	IsDefault   bool      `json:"isDefault" bson:"is_default"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// OneLine renders the street part of the address for receiver snapshots.
func (a Address) OneLine() string {
	s := a.Line1
	if a.Line2 != "" {
		s += ", " + a.Line2
	}
	if a.City != "" {
		s += ", " + a.City
	}
	return s
}

// ShippingReceiver is receiver info submitted for an order that was waiting for it.
type ShippingReceiver struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	CompanyID string    `json:"companyId" bson:"company_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	OrderID   string    `json:"orderId" bson:"order_id"`
	Name      string    `json:"name" bson:"name"`
	Phone     string    `json:"phone" bson:"phone"`
	Address   string    `json:"address" bson:"address"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
