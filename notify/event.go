package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types.
const (
	CartCleared          = "cart.cleared"
	PaymentCreated       = "payment.created"
	PaymentStatusChanged = "payment.status_changed"
	ShipmentUpdated      = "shipment.updated"
	OrderCreated         = "order.created"
	OrderUpdated         = "order.updated"
	QuotationDecided     = "quotation.decided"
)

type Event struct {
	Type      string                 `json:"type"`
	CompanyID string                 `json:"companyId"`
	UserID    string                 `json:"userId,omitempty"`
	EntityID  string                 `json:"entityId,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	At        time.Time              `json:"at"`
}

// NewEvent stamps At with the current time.
func NewEvent(typ, companyID, userID, entityID string, data map[string]interface{}) Event {
	return Event{
		Type:      typ,
		CompanyID: companyID,
		UserID:    userID,
		EntityID:  entityID,
		Data:      data,
		At:        time.Now().UTC(),
	}
}

func UserRoom(userID string) string       { return "user:" + userID }
func CompanyRoom(companyID string) string { return "company:" + companyID }

// Rooms lists the websocket rooms an event belongs to.
func (e Event) Rooms() []string {
	var rooms []string
	if e.UserID != "" {
		rooms = append(rooms, UserRoom(e.UserID))
	}
	if e.CompanyID != "" {
		rooms = append(rooms, CompanyRoom(e.CompanyID))
	}
	return rooms
}

// Publisher delivers domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Deliver writes e to every room it belongs to on the local hub.
func Deliver(h *Hub, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	for _, room := range e.Rooms() {
		h.Broadcast(room, data)
	}
	return nil
}

// HubPublisher delivers straight to an in-process hub.
type HubPublisher struct{ Hub *Hub }

func (p HubPublisher) Publish(_ context.Context, e Event) error {
	return Deliver(p.Hub, e)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to each publisher and joins the errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
