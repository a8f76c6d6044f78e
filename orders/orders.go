package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidReceiver = errors.New("receiver name, phone and address are required")
	ErrEmptyUpdate     = errors.New("no receiver fields supplied")
)

// ShipmentOpener creates the shipment for an order if it has none yet.
type ShipmentOpener interface {
	Open(ctx context.Context, o models.Order) (*models.Shipment, error)
}

// View is an order as returned to clients.
type View struct {
	models.Order
	ReceiverAccess lifecycle.ReceiverAccess `json:"receiver_access"`
	Editable       bool                     `json:"editable"`
}

// NewView computes the receiver affordance at now.
func NewView(o models.Order, now time.Time) View {
	access := lifecycle.ReceiverAccessFor(lifecycle.OrderStatus(o.Status), o.CreatedInstant(), now)
	return View{Order: o, ReceiverAccess: access, Editable: access == lifecycle.AccessEditable}
}

type Service struct {
	store     Store
	shipments ShipmentOpener
	events    notify.Publisher
	now       func() time.Time
}

func NewService(store Store, shipments ShipmentOpener, events notify.Publisher) *Service {
	return &Service{store: store, shipments: shipments, events: events, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	if f.Status != "" {
		st, err := lifecycle.ParseOrderStatus(f.Status)
		if err != nil {
			return nil, err
		}
		f.Status = string(st)
	}
	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]View, 0, len(rows))
	for _, o := range rows {
		out = append(out, NewView(o, now))
	}
	return out, nil
}

// Get loads an order. A non-empty userID restricts it to that owner.
func (s *Service) Get(ctx context.Context, companyID, userID, id string) (*View, error) {
	o, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	v := NewView(*o, s.now())
	return &v, nil
}

func (s *Service) load(ctx context.Context, companyID, userID, id string) (*models.Order, error) {
	o, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// Create inserts a new order stamped with today's date and the creation instant.
func (s *Service) Create(ctx context.Context, o models.Order) (*models.Order, error) {
	now := s.now().UTC()
	if o.ID == "" {
		o.ID = utils.GetUUID()
	}
	if o.Reference == "" {
		o.Reference = utils.NewReference("ORD")
	}
	if o.Status == "" {
		o.Status = string(lifecycle.OrderWaitingInfo)
		if o.HasReceiver() {
			o.Status = string(lifecycle.OrderProcessing)
		}
	}
	o.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	o.CreatedAt = &now
	if err := s.store.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	s.publish(ctx, notify.NewEvent(notify.OrderCreated, o.CompanyID, o.UserID, o.ID, map[string]interface{}{
		"reference": o.Reference,
		"status":    o.Status,
	}))
	return &o, nil
}

// UpdateReceiver edits receiver fields of a Processing order inside the edit window.
// The window is checked here and pinned again in the write filter, so a status
// change racing with the edit wins.
func (s *Service) UpdateReceiver(ctx context.Context, companyID, userID, id string, u lifecycle.ReceiverUpdate) (*View, error) {
	if u.Empty() {
		return nil, ErrEmptyUpdate
	}
	fields := u.Fields()
	for _, v := range fields {
		if v == "" {
			return nil, ErrInvalidReceiver
		}
	}

	o, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := lifecycle.CheckReceiverEdit(lifecycle.OrderStatus(o.Status), o.CreatedInstant(), now); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateReceiver(ctx, companyID, userID, id, fields, now.Add(-lifecycle.ReceiverEditWindow))
	if err != nil {
		return nil, fmt.Errorf("update receiver: %w", err)
	}
	if !ok {
		return nil, lifecycle.ErrWindowClosed
	}

	if v, ok := fields["receiver_name"].(string); ok {
		o.ReceiverName = v
	}
	if v, ok := fields["receiver_phone"].(string); ok {
		o.ReceiverPhone = v
	}
	if v, ok := fields["receiver_address"].(string); ok {
		o.ReceiverAddress = v
	}
	s.publish(ctx, notify.NewEvent(notify.OrderUpdated, companyID, o.UserID, o.ID, map[string]interface{}{"receiver": true}))
	view := NewView(*o, now)
	return &view, nil
}

// SubmitReceiverInfo completes an order that was waiting for receiver details.
func (s *Service) SubmitReceiverInfo(ctx context.Context, companyID, userID, id, name, phone, address string) (*View, error) {
	name, phone, address = strings.TrimSpace(name), strings.TrimSpace(phone), strings.TrimSpace(address)
	if name == "" || phone == "" || address == "" {
		return nil, ErrInvalidReceiver
	}
	o, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	if lifecycle.OrderStatus(o.Status) != lifecycle.OrderWaitingInfo {
		return nil, lifecycle.ErrNotEditable
	}

	rcv := models.ShippingReceiver{
		ID:        utils.GetUUID(),
		CompanyID: companyID,
		UserID:    userID,
		OrderID:   id,
		Name:      name,
		Phone:     phone,
		Address:   address,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertReceiver(ctx, rcv); err != nil {
		return nil, fmt.Errorf("insert receiver: %w", err)
	}
	ok, err := s.store.FillReceiver(ctx, companyID, userID, id, rcv)
	if err != nil {
		return nil, fmt.Errorf("fill receiver: %w", err)
	}
	if !ok {
		return nil, lifecycle.ErrNotEditable
	}

	o.ReceiverName, o.ReceiverPhone, o.ReceiverAddress = name, phone, address
	o.Status = string(lifecycle.OrderProcessing)
	s.publish(ctx, notify.NewEvent(notify.OrderUpdated, companyID, o.UserID, o.ID, map[string]interface{}{"status": o.Status}))
	view := NewView(*o, s.now())
	return &view, nil
}

// SetStatus moves an order one step forward. Entering Shipped opens its shipment.
func (s *Service) SetStatus(ctx context.Context, companyID, id, raw string) (*View, error) {
	to, err := lifecycle.ParseOrderStatus(raw)
	if err != nil {
		return nil, err
	}
	o, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	from := lifecycle.OrderStatus(o.Status)
	if !lifecycle.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", lifecycle.ErrInvalidTransition, from, to)
	}
	ok, err := s.store.SetStatus(ctx, companyID, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("set order status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", lifecycle.ErrInvalidTransition)
	}
	o.Status = string(to)

	if to == lifecycle.OrderShipped && s.shipments != nil {
		if _, err := s.shipments.Open(ctx, *o); err != nil {
			logging.Logger.Error("open shipment", zap.String("order", o.ID), zap.Error(err))
		}
	}
	s.publish(ctx, notify.NewEvent(notify.OrderUpdated, companyID, o.UserID, o.ID, map[string]interface{}{"status": o.Status}))
	view := NewView(*o, s.now())
	return &view, nil
}

func (s *Service) publish(ctx context.Context, e notify.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Logger.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
