package lifecycle

import (
	"strings"
	"time"
)

// OrderStatus is the order-facing enumeration.
type OrderStatus string

const (
	OrderWaitingInfo OrderStatus = "Waiting for information"
	OrderProcessing  OrderStatus = "Processing"
	OrderShipped     OrderStatus = "Shipped"
	OrderDelivered   OrderStatus = "Delivered"
)

// ReceiverEditWindow is how long after creation a Processing order's receiver may change.
const ReceiverEditWindow = 3 * time.Hour

var orderNext = map[OrderStatus]OrderStatus{
	OrderWaitingInfo: OrderProcessing,
	OrderProcessing:  OrderShipped,
	OrderShipped:     OrderDelivered,
}

// ParseOrderStatus matches the closed set case-insensitively.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range []OrderStatus{OrderWaitingInfo, OrderProcessing, OrderShipped, OrderDelivered} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", ErrUnknownStatus
}

func (s OrderStatus) Valid() bool {
	_, ok := orderNext[s]
	return ok || s == OrderDelivered
}

// IsFinal reports whether shipping fields are frozen for good.
func (s OrderStatus) IsFinal() bool {
	return s == OrderShipped || s == OrderDelivered
}

// CanTransition allows only single forward steps; nothing skips Processing.
func CanTransition(from, to OrderStatus) bool {
	next, ok := orderNext[from]
	return ok && next == to
}

// CanEditReceiver is true iff the order is Processing and strictly less than
// ReceiverEditWindow has elapsed since created.
func CanEditReceiver(status OrderStatus, created, now time.Time) bool {
	return status == OrderProcessing && now.Sub(created) < ReceiverEditWindow
}

// CheckReceiverEdit is CanEditReceiver with a reason.
func CheckReceiverEdit(status OrderStatus, created, now time.Time) error {
	if status != OrderProcessing {
		return ErrNotEditable
	}
	if now.Sub(created) >= ReceiverEditWindow {
		return ErrWindowClosed
	}
	return nil
}

// ReceiverAccess tells a client which affordance to offer for the receiver fields.
type ReceiverAccess string

const (
	AccessEditable       ReceiverAccess = "editable"
	AccessNeedsInfo      ReceiverAccess = "needs_info"
	AccessWindowClosed   ReceiverAccess = "window_closed"
	AccessContactSupport ReceiverAccess = "contact_support"
)

func ReceiverAccessFor(status OrderStatus, created, now time.Time) ReceiverAccess {
	switch {
	case status == OrderWaitingInfo:
		return AccessNeedsInfo
	case CanEditReceiver(status, created, now):
		return AccessEditable
	case status == OrderProcessing:
		return AccessWindowClosed
	default:
		return AccessContactSupport
	}
}

// ReceiverUpdate is the only mutable shape of an order. It has no country field.
type ReceiverUpdate struct {
	Name    *string `json:"receiver_name,omitempty"`
	Phone   *string `json:"receiver_phone,omitempty"`
	Address *string `json:"receiver_address,omitempty"`
}

// Fields returns the bson field set to $set. Empty when nothing was supplied.
func (u ReceiverUpdate) Fields() map[string]interface{} {
	out := make(map[string]interface{}, 3)
	if u.Name != nil {
		out["receiver_name"] = strings.TrimSpace(*u.Name)
	}
	if u.Phone != nil {
		out["receiver_phone"] = strings.TrimSpace(*u.Phone)
	}
	if u.Address != nil {
		out["receiver_address"] = strings.TrimSpace(*u.Address)
	}
	return out
}

// Empty reports whether no field was supplied.
func (u ReceiverUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Address == nil
}
