package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk/addresses"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest   = errors.New("invalid checkout request")
	ErrUnknownMethod    = errors.New("unknown payment method")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrMixedCurrency    = errors.New("cart mixes currencies")
	ErrBusy             = errors.New("checkout already in progress")
	ErrAddressNotFound  = errors.New("address not found")
	ErrDuplicatePayment = errors.New("payment for this idempotency key already exists")
)

const lockTTL = 10 * time.Second

// addressNamespace seeds deterministic address ids derived from idempotency keys.
var addressNamespace = uuid.MustParse("6f1c8a52-4d0e-4f7b-9a51-2e3b7c9d1a40")

type Cart interface {
	Items(ctx context.Context, companyID, userID string) ([]models.CartItem, error)
	Products(ctx context.Context, companyID string, ids []string) (map[string]models.Product, error)
	Clear(ctx context.Context, companyID, userID string) error
}

type Addresses interface {
	Get(ctx context.Context, companyID, userID, id string) (*models.Address, error)
	Save(ctx context.Context, companyID, userID, id string, in addresses.Input) (*models.Address, error)
}

// Payments returns (nil, nil) from FindByIdempotencyKey when nothing matches and
// ErrDuplicatePayment from Insert when the key is taken.
type Payments interface {
	FindByIdempotencyKey(ctx context.Context, companyID, userID, key string) (*models.Payment, error)
	Insert(ctx context.Context, p models.Payment) error
}

type Profiles interface {
	Profile(ctx context.Context, companyID, userID string) (*models.Profile, error)
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Request struct {
	PaymentMethodType string           `json:"payment_method_type"`
	PaymentMethodID   string           `json:"payment_method_id"`
	AddressID         string           `json:"address_id,omitempty"`
	NewAddress        *addresses.Input `json:"new_address,omitempty"`
}

// Validate runs before anything touches a gateway.
func (r *Request) Validate() error {
	r.PaymentMethodType = strings.ToLower(strings.TrimSpace(r.PaymentMethodType))
	r.PaymentMethodID = strings.TrimSpace(r.PaymentMethodID)
	r.AddressID = strings.TrimSpace(r.AddressID)

	switch {
	case r.PaymentMethodType != "bank" && r.PaymentMethodType != "crypto":
		return fmt.Errorf("%w: payment_method_type must be bank or crypto", ErrInvalidRequest)
	case r.PaymentMethodID == "":
		return fmt.Errorf("%w: payment_method_id is required", ErrInvalidRequest)
	case r.AddressID == "" && r.NewAddress == nil:
		return fmt.Errorf("%w: address_id or new_address is required", ErrInvalidRequest)
	case r.AddressID != "" && r.NewAddress != nil:
		return fmt.Errorf("%w: send either address_id or new_address, not both", ErrInvalidRequest)
	}
	return nil
}

type Result struct {
	Payment  *models.Payment
	Replayed bool
}

type Service struct {
	cart      Cart
	addresses Addresses
	payments  Payments
	profiles  Profiles
	locker    Locker
	events    notify.Publisher
	now       func() time.Time
}

func NewService(cart Cart, addrs Addresses, payments Payments, profiles Profiles, locker Locker, events notify.Publisher) *Service {
	return &Service{
		cart:      cart,
		addresses: addrs,
		payments:  payments,
		profiles:  profiles,
		locker:    locker,
		events:    events,
		now:       time.Now,
	}
}

// Checkout turns the caller's cart into a pending payment and clears the cart.
// Nothing is written unless the cart is non-empty and every input checks out;
// a failure before the payment insert leaves the cart as it was.
func (s *Service) Checkout(ctx context.Context, company *models.Company, userID, idemKey string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, ok := company.PaymentMethod(req.PaymentMethodType, req.PaymentMethodID)
	if !ok {
		return nil, ErrUnknownMethod
	}

	release, ok, err := s.locker.Acquire(ctx, lockKey(company.ID, userID), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if idemKey != "" {
		prev, err := s.payments.FindByIdempotencyKey(ctx, company.ID, userID, idemKey)
		if err != nil {
			return nil, fmt.Errorf("lookup payment by key: %w", err)
		}
		if prev != nil {
			return &Result{Payment: prev, Replayed: true}, nil
		}
	}

	items, err := s.cart.Items(ctx, company.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	live, err := s.cart.Products(ctx, company.ID, ids)
	if err != nil {
		// degrade to snapshot prices
		logging.Logger.Warn("checkout: live prices unavailable", zap.String("user", userID), zap.Error(err))
		live = nil
	}
	priced, total, currency, err := Price(items, live)
	if err != nil {
		return nil, err
	}

	addressID, err := s.resolveAddress(ctx, company.ID, userID, idemKey, req)
	if err != nil {
		return nil, err
	}

	payer := models.Payer{UserID: userID}
	if p, err := s.profiles.Profile(ctx, company.ID, userID); err != nil {
		logging.Logger.Warn("checkout: profile lookup", zap.String("user", userID), zap.Error(err))
	} else if p != nil {
		payer.Name, payer.Email, payer.Phone = p.FullName, p.Email, p.Phone
	}

	now := s.now().UTC()
	payment := models.Payment{
		ID:        utils.GetUUID(),
		Reference: utils.NewReference("PAY"),
		CompanyID: company.ID,
		UserID:    userID,
		Amount:    total.InexactFloat64(),
		Currency:  currency,
		Method:    method,
		Status:    lifecycle.PaymentPending.Stored(),
		Payer:     payer,
		Metadata: models.PaymentMetadata{
			CartItems:     priced,
			AddressID:     addressID,
			PaymentMethod: method,
		},
		IdempotencyKey: idemKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		if errors.Is(err, ErrDuplicatePayment) && idemKey != "" {
			winner, ferr := s.payments.FindByIdempotencyKey(ctx, company.ID, userID, idemKey)
			if ferr == nil && winner != nil {
				return &Result{Payment: winner, Replayed: true}, nil
			}
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	// the payment exists; from here on failures are only logged
	if err := s.cart.Clear(ctx, company.ID, userID); err != nil {
		logging.Logger.Error("checkout: clear cart", zap.String("payment", payment.ID), zap.Error(err))
	}
	s.publish(ctx, notify.NewEvent(notify.CartCleared, company.ID, userID, "", nil))
	s.publish(ctx, notify.NewEvent(notify.PaymentCreated, company.ID, userID, payment.ID, map[string]interface{}{
		"reference": payment.Reference,
		"amount":    total.StringFixed(2),
		"currency":  currency,
	}))

	logging.Logger.Info("checkout completed",
		zap.String("payment", payment.ID),
		zap.String("company", company.ID),
		zap.String("user", userID),
		zap.String("amount", total.StringFixed(2)))
	return &Result{Payment: &payment}, nil
}

func (s *Service) resolveAddress(ctx context.Context, companyID, userID, idemKey string, req Request) (string, error) {
	if req.NewAddress == nil {
		a, err := s.addresses.Get(ctx, companyID, userID, req.AddressID)
		if errors.Is(err, addresses.ErrNotFound) {
			return "", ErrAddressNotFound
		}
		if err != nil {
			return "", fmt.Errorf("load address: %w", err)
		}
		return a.ID, nil
	}

	id := ""
	if idemKey != "" {
		id = AddressIDForKey(companyID, userID, idemKey)
	}
	a, err := s.addresses.Save(ctx, companyID, userID, id, *req.NewAddress)
	if err != nil {
		if errors.Is(err, addresses.ErrInvalid) {
			return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return "", fmt.Errorf("save address: %w", err)
	}
	return a.ID, nil
}

func (s *Service) publish(ctx context.Context, e notify.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Logger.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}

func lockKey(companyID, userID string) string {
	return "checkout_lock:" + companyID + ":" + userID
}

// AddressIDForKey is stable for one checkout attempt, so a retry never adds a second address.
func AddressIDForKey(companyID, userID, idemKey string) string {
	return uuid.NewSHA1(addressNamespace, []byte(companyID+"\x00"+userID+"\x00"+idemKey)).String()
}

// Price sums unit price times quantity. The live product price wins when the
// product is present and active, otherwise the add-time snapshot is used.
// The returned items carry the effective prices.
func Price(items []models.CartItem, live map[string]models.Product) ([]models.CartItem, decimal.Decimal, string, error) {
	total := decimal.Zero
	currency := ""
	priced := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		price, cur := it.UnitPrice, it.Currency
		if p, ok := live[it.ProductID]; ok && p.Active {
			price, cur = p.Price, p.Currency
		}
		cur = strings.ToUpper(cur)
		if currency == "" {
			currency = cur
		} else if cur != currency {
			return nil, decimal.Zero, "", fmt.Errorf("%w: %s and %s", ErrMixedCurrency, currency, cur)
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(it.Quantity))))
		it.UnitPrice, it.Currency = price, cur
		priced = append(priced, it)
	}
	if len(priced) == 0 {
		return nil, decimal.Zero, "", ErrEmptyCart
	}
	return priced, total, currency, nil
}
