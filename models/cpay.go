package models

import (
	"time"
)

// Meta is a generic key-value map for transaction metadata
type Meta map[string]interface{}

// PaymentMethodRef identifies the bank account or crypto wallet a payer chose.
type PaymentMethodRef struct {
	Type  string `json:"type" bson:"type"` // bank, crypto
	ID    string `json:"id" bson:"id"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Payer is a snapshot of who claimed to pay, taken at checkout.
type Payer struct {
	UserID string `json:"userId" bson:"user_id"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email,omitempty" bson:"email,omitempty"`
	Phone  string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// PaymentMetadata freezes what was bought and where it goes.
type PaymentMetadata struct {
	CartItems     []CartItem       `json:"cartItems" bson:"cart_items"`
	AddressID     string           `json:"addressId" bson:"address_id"`
	PaymentMethod PaymentMethodRef `json:"paymentMethod" bson:"payment_method"`
	Extra         Meta             `json:"extra,omitempty" bson:"extra,omitempty"`
}

// Payment is a payer's claim to have paid for a cart or order.
type Payment struct {
	ID             string           `json:"id" bson:"_id,omitempty"`
	Reference      string           `json:"reference" bson:"reference"`
	CompanyID      string           `json:"companyId" bson:"company_id"`
	UserID         string           `json:"userId" bson:"user_id"`
	OrderID        string           `json:"orderId,omitempty" bson:"order_id,omitempty"`
	Amount         float64          `json:"amount" bson:"amount"`
	Currency       string           `json:"currency" bson:"currency"`
	Method         PaymentMethodRef `json:"method" bson:"method"`
	Status         string           `json:"status" bson:"status"` // stored casing, see lifecycle.PaymentStatus
	Payer          Payer            `json:"payer" bson:"payer"`
	ProofURL       string           `json:"proofUrl,omitempty" bson:"proof_url,omitempty"`
	Metadata       PaymentMetadata  `json:"metadata" bson:"metadata"`
	IdempotencyKey string           `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" bson:"updated_at"`
}

// IdempotencyRecord represents an idempotency key record stored in Mongo.
type IdempotencyRecord struct {
	Key         string                 `bson:"key" json:"key"`
	Method      string                 `bson:"method" json:"method"`
	Path        string                 `bson:"path" json:"path"`
	UserID      string                 `bson:"userid" json:"userid"`
	RequestHash string                 `bson:"request_hash" json:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at" json:"expires_at"`
}
