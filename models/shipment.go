package models

import "time"

// Shipment tracks physical delivery of an accepted order.
type Shipment struct {
	ID                string     `json:"id" bson:"_id,omitempty"`
	CompanyID         string     `json:"companyId" bson:"company_id"`
	UserID            string     `json:"userId" bson:"user_id"`
	OrderID           string     `json:"orderId" bson:"order_id"`
	QuotationID       string     `json:"quotationId,omitempty" bson:"quotation_id,omitempty"`
	TrackingID        string     `json:"trackingId" bson:"tracking_id"`
	Status            string     `json:"status" bson:"status"`
	Location          string     `json:"location,omitempty" bson:"location,omitempty"`
	ImagesURLs        []string   `json:"imagesUrls" bson:"images_urls"`
	VideosURLs        []string   `json:"videosUrls" bson:"videos_urls"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty" bson:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty" bson:"delivered_at,omitempty"`
	ReceiverName      string     `json:"receiverName" bson:"receiver_name"`
	ReceiverPhone     string     `json:"receiverPhone" bson:"receiver_phone"`
	ReceiverAddress   string     `json:"receiverAddress" bson:"receiver_address"`
	CreatedAt         time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" bson:"updated_at"`
}
