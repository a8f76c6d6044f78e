package lifecycle

import (
	"fmt"
	"strings"
	"time"
)

// ShipmentStatus is operator-driven: any value is reachable from any other.
type ShipmentStatus string

const (
	ShipmentProcessingLower ShipmentStatus = "processing"
	ShipmentShippedLower    ShipmentStatus = "shipped"
	ShipmentDeliveredLower  ShipmentStatus = "delivered"

	ShipmentInTransit  ShipmentStatus = "In Transit"
	ShipmentProcessing ShipmentStatus = "Processing"
	ShipmentDelivered  ShipmentStatus = "Delivered"
	ShipmentDelayed    ShipmentStatus = "Delayed"
	ShipmentWaiting    ShipmentStatus = "Waiting"

	customPrefix = "Custom:"
)

var predefinedShipment = []ShipmentStatus{
	ShipmentProcessingLower, ShipmentShippedLower, ShipmentDeliveredLower,
	ShipmentInTransit, ShipmentProcessing, ShipmentDelivered, ShipmentDelayed, ShipmentWaiting,
}

// ParseShipmentStatus returns the canonical spelling of a predefined value or a
// Custom:<text> status. Exact matches win over case-folded ones.
func ParseShipmentStatus(raw string) (ShipmentStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range predefinedShipment {
		if raw == string(s) {
			return s, nil
		}
	}
	for _, s := range predefinedShipment {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	if len(raw) >= len(customPrefix) && strings.EqualFold(raw[:len(customPrefix)], customPrefix) {
		text := strings.TrimSpace(raw[len(customPrefix):])
		if text == "" {
			return "", fmt.Errorf("%w: empty custom status", ErrUnknownStatus)
		}
		return CustomShipmentStatus(text), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func CustomShipmentStatus(text string) ShipmentStatus {
	return ShipmentStatus(customPrefix + strings.TrimSpace(text))
}

func (s ShipmentStatus) IsCustom() bool {
	return strings.HasPrefix(string(s), customPrefix)
}

func (s ShipmentStatus) IsDelivered() bool {
	return strings.EqualFold(string(s), string(ShipmentDelivered))
}

// DeliveryDates applies the display rule: delivered_at only once delivered,
// estimated_delivery only until then.
func DeliveryDates(s ShipmentStatus, estimated, delivered *time.Time) (est, del *time.Time) {
	if s.IsDelivered() {
		return nil, delivered
	}
	return estimated, nil
}

// StampDelivered fills delivered_at with now when a delivered status arrives without one.
func StampDelivered(s ShipmentStatus, deliveredAt *time.Time, now time.Time) *time.Time {
	if s.IsDelivered() && deliveredAt == nil {
		t := now
		return &t
	}
	return deliveredAt
}
