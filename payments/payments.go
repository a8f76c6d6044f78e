package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk/addresses"
	"tradedesk/blob"
	"tradedesk/filemgr"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotInvoiceable = errors.New("invoice is only available for approved or completed payments")
)

type OrderCreator interface {
	Create(ctx context.Context, o models.Order) (*models.Order, error)
}

type ShipmentOpener interface {
	Open(ctx context.Context, o models.Order) (*models.Shipment, error)
}

type AddressReader interface {
	Get(ctx context.Context, companyID, userID, id string) (*models.Address, error)
}

// View adds the normalized status and its display label.
type View struct {
	models.Payment
	ViewStatus  lifecycle.PaymentStatus `json:"view_status"`
	StatusLabel string                  `json:"status_label"`
}

func NewView(p models.Payment) View {
	s := lifecycle.NormalizePayment(p.Status)
	return View{Payment: p, ViewStatus: s, StatusLabel: s.Label()}
}

// Metrics summarises a tenant's payments by view status.
type Metrics struct {
	Counts         map[lifecycle.PaymentStatus]int `json:"counts"`
	Total          int                             `json:"total"`
	ApprovedTotals map[string]string               `json:"approved_totals"`
}

type Service struct {
	store     Store
	orders    OrderCreator
	shipments ShipmentOpener
	addresses AddressReader
	blobs     blob.Store
	bucket    string
	events    notify.Publisher
	now       func() time.Time
}

func NewService(store Store, orders OrderCreator, shipments ShipmentOpener, addrs AddressReader,
	blobs blob.Store, bucket string, events notify.Publisher) *Service {
	return &Service{
		store:     store,
		orders:    orders,
		shipments: shipments,
		addresses: addrs,
		blobs:     blobs,
		bucket:    bucket,
		events:    events,
		now:       time.Now,
	}
}

// List filters by view status; "approved" matches every stored spelling and casing of it.
func (s *Service) List(ctx context.Context, companyID, rawStatus string, page utils.Page) ([]View, error) {
	f := Filter{CompanyID: companyID, Page: page}
	if rawStatus != "" {
		f.Statuses = lifecycle.NormalizePayment(rawStatus).Aliases()
	}
	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, p := range rows {
		out = append(out, NewView(p))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (*View, error) {
	p, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	v := NewView(*p)
	return &v, nil
}

func (s *Service) Metrics(ctx context.Context, companyID string) (*Metrics, error) {
	rows, err := s.store.Totals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	m := &Metrics{Counts: map[lifecycle.PaymentStatus]int{}, ApprovedTotals: map[string]string{}}
	sums := map[string]decimal.Decimal{}
	for _, r := range rows {
		st := lifecycle.NormalizePayment(r.Status)
		m.Counts[st] += r.Count
		m.Total += r.Count
		if st.IsAcceptedEquivalent() {
			cur := strings.ToUpper(r.Currency)
			sums[cur] = sums[cur].Add(decimal.NewFromFloat(r.Amount))
		}
	}
	// approved counts every accepted-equivalent row
	m.Counts[lifecycle.PaymentApproved] += m.Counts[lifecycle.PaymentCompleted]
	for cur, d := range sums {
		m.ApprovedTotals[cur] = d.StringFixed(2)
	}
	return m, nil
}

// SetStatus writes a new status and returns it in stored casing. Entering
// approved creates the order from the checkout snapshot and opens its shipment.
func (s *Service) SetStatus(ctx context.Context, companyID, id, raw string) (string, error) {
	to, err := lifecycle.ParsePayment(raw)
	if err != nil {
		return "", err
	}
	p, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return "", err
	}
	from := lifecycle.NormalizePayment(p.Status)
	if from == to {
		return p.Status, nil
	}
	if !lifecycle.CanTransitionPayment(from, to) {
		return "", fmt.Errorf("%w: %s -> %s", lifecycle.ErrInvalidTransition, from, to)
	}
	ok, err := s.store.SetStatus(ctx, companyID, id, p.Status, to.Stored())
	if err != nil {
		return "", fmt.Errorf("set payment status: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: payment changed concurrently", lifecycle.ErrInvalidTransition)
	}
	p.Status = to.Stored()

	if to == lifecycle.PaymentApproved && p.OrderID == "" {
		if err := s.fulfil(ctx, p); err != nil {
			logging.Logger.Error("fulfil approved payment", zap.String("payment", p.ID), zap.Error(err))
		}
	}

	e := notify.NewEvent(notify.PaymentStatusChanged, companyID, p.UserID, p.ID, map[string]interface{}{
		"from":   string(from),
		"to":     string(to),
		"stored": p.Status,
	})
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Logger.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
	logging.Logger.Info("payment status changed",
		zap.String("payment", p.ID), zap.String("from", string(from)), zap.String("to", string(to)))
	return p.Status, nil
}

// fulfil turns an approved payment into an order with an open shipment.
func (s *Service) fulfil(ctx context.Context, p *models.Payment) error {
	o := OrderFromPayment(*p)
	if p.Metadata.AddressID != "" && s.addresses != nil {
		a, err := s.addresses.Get(ctx, p.CompanyID, p.UserID, p.Metadata.AddressID)
		switch {
		case errors.Is(err, addresses.ErrNotFound):
			logging.Logger.Warn("payment address gone", zap.String("payment", p.ID))
		case err != nil:
			return fmt.Errorf("load address: %w", err)
		default:
			o.ReceiverName = a.FullName
			o.ReceiverPhone = a.Phone
			o.ReceiverAddress = a.OneLine()
			o.Country = a.Country
		}
	}

	created, err := s.orders.Create(ctx, o)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := s.store.SetOrderID(ctx, p.CompanyID, p.ID, created.ID); err != nil {
		return fmt.Errorf("link order: %w", err)
	}
	p.OrderID = created.ID
	if _, err := s.shipments.Open(ctx, *created); err != nil {
		return fmt.Errorf("open shipment: %w", err)
	}
	return nil
}

// OrderFromPayment builds the order for a payment's cart snapshot.
func OrderFromPayment(p models.Payment) models.Order {
	o := models.Order{
		CompanyID: p.CompanyID,
		UserID:    p.UserID,
		PaymentID: p.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
	}
	items := p.Metadata.CartItems
	for _, it := range items {
		o.Quantity += it.Quantity
	}
	switch len(items) {
	case 0:
		o.ProductName = "Payment " + p.Reference
	case 1:
		o.ProductID = items[0].ProductID
		o.ProductName = items[0].ProductName
	default:
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
		}
		o.ProductID = items[0].ProductID
		o.ProductName = strings.Join(names, ", ")
	}
	return o
}

// AttachProof stores a client's transfer receipt for their own payment.
func (s *Service) AttachProof(ctx context.Context, companyID, userID, id string, u *filemgr.Upload) (string, error) {
	p, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return "", err
	}
	if p.UserID != userID {
		return "", ErrNotFound
	}
	if strings.HasPrefix(u.ContentType, "image/") {
		if err := filemgr.Reencode(u); err != nil {
			return "", fmt.Errorf("%w: %v", filemgr.ErrInvalidMIME, err)
		}
	}
	key := filemgr.ProofObjectKey(id, u.Ext, s.now())
	url, err := s.blobs.Put(ctx, s.bucket, key, u.Reader(), u.Size(), u.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	if err := s.store.SetProof(ctx, companyID, id, url); err != nil {
		return "", err
	}
	return url, nil
}
