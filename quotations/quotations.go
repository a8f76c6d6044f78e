package quotations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk/cart"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidOption   = errors.New("selected_option out of range")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrProductNotFound = errors.New("product not found")
)

type Products interface {
	Product(ctx context.Context, companyID, productID string) (*models.Product, error)
}

type OrderCreator interface {
	Create(ctx context.Context, o models.Order) (*models.Order, error)
}

// View carries the normalized status next to the stored one.
type View struct {
	models.Quotation
	ViewStatus lifecycle.QuotationStatus `json:"view_status"`
}

func NewView(q models.Quotation) View {
	return View{Quotation: q, ViewStatus: lifecycle.NormalizeQuotation(q.Status)}
}

// CreateInput is a storefront quotation request.
type CreateInput struct {
	ProductID       string                   `json:"product_id"`
	Quantity        int                      `json:"quantity"`
	Country         string                   `json:"country"`
	Options         []models.QuotationOption `json:"options,omitempty"`
	ReceiverName    string                   `json:"receiver_name,omitempty"`
	ReceiverPhone   string                   `json:"receiver_phone,omitempty"`
	ReceiverAddress string                   `json:"receiver_address,omitempty"`
}

type Service struct {
	store    Store
	products Products
	orders   OrderCreator
	events   notify.Publisher
	now      func() time.Time
}

func NewService(store Store, products Products, orders OrderCreator, events notify.Publisher) *Service {
	return &Service{store: store, products: products, orders: orders, events: events, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, q := range rows {
		out = append(out, NewView(q))
	}
	return out, nil
}

// Get loads a quotation; a non-empty userID restricts it to that owner.
func (s *Service) Get(ctx context.Context, companyID, userID, id string) (*View, error) {
	q, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	v := NewView(*q)
	return &v, nil
}

func (s *Service) load(ctx context.Context, companyID, userID, id string) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && q.UserID != userID {
		return nil, ErrNotFound
	}
	return q, nil
}

// Create records a pending quotation priced from the live product.
func (s *Service) Create(ctx context.Context, companyID, userID string, in CreateInput) (*View, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, err := s.products.Product(ctx, companyID, in.ProductID)
	if errors.Is(err, cart.ErrProductNotFound) || (err == nil && !p.Active) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	amount := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(in.Quantity)))
	q := models.Quotation{
		ID:              utils.GetUUID(),
		Reference:       utils.NewReference("QUO"),
		CompanyID:       companyID,
		UserID:          userID,
		ProductID:       p.ID,
		ProductName:     p.Name,
		Quantity:        in.Quantity,
		Amount:          amount.InexactFloat64(),
		Currency:        p.Currency,
		Status:          string(lifecycle.QuotationPending),
		Options:         in.Options,
		Country:         strings.ToUpper(strings.TrimSpace(in.Country)),
		ReceiverName:    strings.TrimSpace(in.ReceiverName),
		ReceiverPhone:   strings.TrimSpace(in.ReceiverPhone),
		ReceiverAddress: strings.TrimSpace(in.ReceiverAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, q); err != nil {
		return nil, fmt.Errorf("insert quotation: %w", err)
	}
	v := NewView(q)
	return &v, nil
}

// Decide applies an approver decision. An approving decision on a quotation
// without an order creates one. userID is empty for magic-link access.
func (s *Service) Decide(ctx context.Context, companyID, userID, id string, d lifecycle.QuotationDecision, selected *int) (*View, error) {
	q, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	if selected != nil && (*selected < 0 || *selected >= len(q.Options)) {
		return nil, ErrInvalidOption
	}
	to := string(d)
	if err := lifecycle.CheckDecision(q.Status, d); err != nil {
		if !unfinishedApproval(*q, d) {
			return nil, err
		}
		// an earlier approval stored its status but never got an order; finish it
		to = q.Status
	}
	ok, err := s.store.SetStatus(ctx, companyID, id, q.Status, to, selected)
	if err != nil {
		return nil, fmt.Errorf("set quotation status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: quotation changed concurrently", lifecycle.ErrInvalidTransition)
	}
	q.Status = to
	if selected != nil {
		q.SelectedOption = selected
	}

	if d.View() == lifecycle.QuotationApproved && q.OrderID == "" {
		o, err := s.orders.Create(ctx, orderFor(*q))
		if err != nil {
			return nil, fmt.Errorf("create order for quotation %s: %w", q.ID, err)
		}
		if err := s.store.LinkOrder(ctx, companyID, id, o.ID); err != nil {
			return nil, fmt.Errorf("link order: %w", err)
		}
		q.OrderID = o.ID
	}

	s.publish(ctx, notify.NewEvent(notify.QuotationDecided, companyID, q.UserID, q.ID, map[string]interface{}{
		"status":   q.Status,
		"order_id": q.OrderID,
	}))
	v := NewView(*q)
	return &v, nil
}

func unfinishedApproval(q models.Quotation, d lifecycle.QuotationDecision) bool {
	return d.View() == lifecycle.QuotationApproved &&
		lifecycle.NormalizeQuotation(q.Status) == lifecycle.QuotationApproved &&
		q.OrderID == ""
}

// SelectOption records the chosen option while the quotation is still pending.
func (s *Service) SelectOption(ctx context.Context, companyID, userID, id string, selected int) (*View, error) {
	q, err := s.load(ctx, companyID, userID, id)
	if err != nil {
		return nil, err
	}
	if selected < 0 || selected >= len(q.Options) {
		return nil, ErrInvalidOption
	}
	if lifecycle.NormalizeQuotation(q.Status) != lifecycle.QuotationPending {
		return nil, lifecycle.ErrInvalidTransition
	}
	ok, err := s.store.SetSelectedOption(ctx, companyID, id, q.Status, selected)
	if err != nil {
		return nil, fmt.Errorf("select option: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: quotation changed concurrently", lifecycle.ErrInvalidTransition)
	}
	q.SelectedOption = &selected
	v := NewView(*q)
	return &v, nil
}

// orderFor prices the order from the selected option when there is one.
func orderFor(q models.Quotation) models.Order {
	amount := q.Amount
	if q.SelectedOption != nil && *q.SelectedOption < len(q.Options) {
		opt := q.Options[*q.SelectedOption]
		amount = decimal.NewFromFloat(opt.UnitPrice).Mul(decimal.NewFromInt(int64(q.Quantity))).InexactFloat64()
	}
	return models.Order{
		CompanyID:       q.CompanyID,
		UserID:          q.UserID,
		QuotationID:     q.ID,
		ProductID:       q.ProductID,
		ProductName:     q.ProductName,
		Quantity:        q.Quantity,
		Amount:          amount,
		Currency:        q.Currency,
		Country:         q.Country,
		ReceiverName:    q.ReceiverName,
		ReceiverPhone:   q.ReceiverPhone,
		ReceiverAddress: q.ReceiverAddress,
	}
}

func (s *Service) publish(ctx context.Context, e notify.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Logger.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
