package models

import "time"

// CartItem is one product line in a user's cart. Name, price and image are
// captured when the item is added and are not refreshed from the product.
type CartItem struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	CompanyID   string    `json:"companyId" bson:"company_id"`
	UserID      string    `json:"userId" bson:"user_id"`
	ProductID   string    `json:"productId" bson:"product_id"`
	ProductName string    `json:"productName" bson:"product_name"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	UnitPrice   float64   `json:"unitPrice" bson:"unit_price"` // snapshot at add-time
	Currency    string    `json:"currency" bson:"currency"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	AddedAt     time.Time `json:"addedAt" bson:"added_at"`
}

// LineTotal is the snapshot unit price times quantity.
func (c CartItem) LineTotal() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

// Product is the live catalogue row a cart item points at.
type Product struct {
	ID        string  `json:"id" bson:"_id,omitempty"`
	CompanyID string  `json:"companyId" bson:"company_id"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Currency  string  `json:"currency" bson:"currency"`
	ImageURL  string  `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	Active    bool    `json:"active" bson:"active"`
}
