package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradedesk/addresses"
	"tradedesk/globals"
	"tradedesk/models"
	"tradedesk/notify"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCart struct {
	items    []models.CartItem
	products map[string]models.Product
	clearErr error
	reads    int
	cleared  bool
}

func (f *fakeCart) Items(context.Context, string, string) ([]models.CartItem, error) {
	f.reads++
	return append([]models.CartItem(nil), f.items...), nil
}

func (f *fakeCart) Products(_ context.Context, _ string, ids []string) (map[string]models.Product, error) {
	out := map[string]models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCart) Clear(context.Context, string, string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	f.items = nil
	return nil
}

type fakeAddresses struct {
	saved map[string]addresses.Input
	owned map[string]bool
}

func (f *fakeAddresses) Get(_ context.Context, _, _, id string) (*models.Address, error) {
	if !f.owned[id] {
		return nil, addresses.ErrNotFound
	}
	return &models.Address{ID: id}, nil
}

func (f *fakeAddresses) Save(_ context.Context, _, _, id string, in addresses.Input) (*models.Address, error) {
	if in.Country == "" {
		return nil, addresses.ErrInvalid
	}
	if id == "" {
		id = "generated"
	}
	f.saved[id] = in
	return &models.Address{ID: id}, nil
}

type fakePayments struct {
	rows      []models.Payment
	insertErr error
}

func (f *fakePayments) FindByIdempotencyKey(_ context.Context, companyID, userID, key string) (*models.Payment, error) {
	for i := range f.rows {
		p := f.rows[i]
		if p.CompanyID == companyID && p.UserID == userID && p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakePayments) Insert(_ context.Context, p models.Payment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if p.IdempotencyKey != "" {
		if prev, _ := f.FindByIdempotencyKey(context.Background(), p.CompanyID, p.UserID, p.IdempotencyKey); prev != nil {
			return ErrDuplicatePayment
		}
	}
	f.rows = append(f.rows, p)
	return nil
}

type fakeProfiles struct{}

func (fakeProfiles) Profile(_ context.Context, companyID, userID string) (*models.Profile, error) {
	return &models.Profile{ID: userID, CompanyID: companyID, FullName: "Ada Buyer", Email: "ada@example.com", Phone: "+15550100"}, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, false, nil
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		delete(f.held, key)
		f.mu.Unlock()
	}, true, nil
}

type fixture struct {
	svc      *Service
	cart     *fakeCart
	addrs    *fakeAddresses
	payments *fakePayments
	locker   *fakeLocker
	events   *notify.Recorder
}

func newFixture(items ...models.CartItem) *fixture {
	f := &fixture{
		cart:     &fakeCart{items: items, products: map[string]models.Product{}},
		addrs:    &fakeAddresses{saved: map[string]addresses.Input{}, owned: map[string]bool{"addr-1": true}},
		payments: &fakePayments{},
		locker:   &fakeLocker{held: map[string]bool{}},
		events:   &notify.Recorder{},
	}
	f.svc = NewService(f.cart, f.addrs, f.payments, fakeProfiles{}, f.locker, f.events)
	return f
}

var company = &models.Company{
	ID:   "c1",
	Slug: "acme",
	PaymentMethods: []models.PaymentMethodRef{
		{Type: "bank", ID: "bank-1", Label: "ACME Bank ****1234"},
		{Type: "crypto", ID: "usdt-1", Label: "USDT (TRC20)"},
	},
}

func item(id string, price float64, qty int) models.CartItem {
	return models.CartItem{ProductID: id, ProductName: id, UnitPrice: price, Currency: "USD", Quantity: qty}
}

func bankReq() Request {
	return Request{PaymentMethodType: "bank", PaymentMethodID: "bank-1", AddressID: "addr-1"}
}

func TestCheckoutTotalsAndClearsCart(t *testing.T) {
	f := newFixture(item("p1", 10, 2), item("p2", 5, 3))

	res, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	require.NoError(t, err)
	assert.False(t, res.Replayed)

	p := res.Payment
	assert.Equal(t, 35.0, p.Amount)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, "ACME Bank ****1234", p.Method.Label)
	assert.Equal(t, "Ada Buyer", p.Payer.Name)
	assert.Equal(t, "addr-1", p.Metadata.AddressID)
	assert.Len(t, p.Metadata.CartItems, 2)
	assert.True(t, strings.HasPrefix(p.Reference, "PAY-"))

	assert.True(t, f.cart.cleared)
	assert.Len(t, f.payments.rows, 1)
	assert.Equal(t, []string{notify.CartCleared, notify.PaymentCreated}, f.events.Types())
	assert.Empty(t, f.locker.held, "lock released")
}

func TestCheckoutEmptyCartWritesNothing(t *testing.T) {
	f := newFixture()
	req := Request{
		PaymentMethodType: "crypto",
		PaymentMethodID:   "usdt-1",
		NewAddress:        &addresses.Input{FullName: "A", Line1: "1 Main", City: "Austin", Country: "US", Phone: "1"},
	}

	_, err := f.svc.Checkout(context.Background(), company, "u1", "key-1", req)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.payments.rows)
	assert.Empty(t, f.addrs.saved)
	assert.Empty(t, f.events.Events)
}

func TestCheckoutValidationHappensFirst(t *testing.T) {
	cases := map[string]Request{
		"bad type":       {PaymentMethodType: "cash", PaymentMethodID: "x", AddressID: "addr-1"},
		"missing method": {PaymentMethodType: "bank", AddressID: "addr-1"},
		"no address":     {PaymentMethodType: "bank", PaymentMethodID: "bank-1"},
		"both addresses": {PaymentMethodType: "bank", PaymentMethodID: "bank-1", AddressID: "addr-1", NewAddress: &addresses.Input{}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(item("p1", 10, 1))
			_, err := f.svc.Checkout(context.Background(), company, "u1", "", req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Zero(t, f.cart.reads)
		})
	}

	f := newFixture(item("p1", 10, 1))
	_, err := f.svc.Checkout(context.Background(), company, "u1", "", Request{PaymentMethodType: "bank", PaymentMethodID: "nope", AddressID: "addr-1"})
	assert.ErrorIs(t, err, ErrUnknownMethod)
	assert.Zero(t, f.cart.reads)
}

func TestCheckoutPrefersLivePrice(t *testing.T) {
	f := newFixture(item("p1", 10, 2), item("p2", 5, 1))
	f.cart.products["p1"] = models.Product{ID: "p1", Price: 12, Currency: "USD", Active: true}
	f.cart.products["p2"] = models.Product{ID: "p2", Price: 99, Currency: "USD", Active: false}

	res, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	require.NoError(t, err)
	assert.Equal(t, 29.0, res.Payment.Amount)
	assert.Equal(t, 12.0, res.Payment.Metadata.CartItems[0].UnitPrice)
}

func TestCheckoutMixedCurrency(t *testing.T) {
	eur := item("p2", 5, 1)
	eur.Currency = "EUR"
	f := newFixture(item("p1", 10, 1), eur)

	_, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	assert.ErrorIs(t, err, ErrMixedCurrency)
	assert.False(t, f.cart.cleared)
	assert.Empty(t, f.payments.rows)
}

func TestCheckoutReplayWithSameKey(t *testing.T) {
	f := newFixture(item("p1", 10, 1))
	req := Request{
		PaymentMethodType: "bank",
		PaymentMethodID:   "bank-1",
		NewAddress:        &addresses.Input{FullName: "A", Line1: "1 Main", City: "Austin", Country: "US", Phone: "1"},
	}

	first, err := f.svc.Checkout(context.Background(), company, "u1", "key-1", req)
	require.NoError(t, err)
	assert.Equal(t, AddressIDForKey("c1", "u1", "key-1"), first.Payment.Metadata.AddressID)

	second, err := f.svc.Checkout(context.Background(), company, "u1", "key-1", req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Len(t, f.payments.rows, 1)
	assert.Len(t, f.addrs.saved, 1)
}

func TestAddressIDForKeyIsStable(t *testing.T) {
	a := AddressIDForKey("c1", "u1", "k")
	assert.Equal(t, a, AddressIDForKey("c1", "u1", "k"))
	assert.NotEqual(t, a, AddressIDForKey("c1", "u2", "k"))
}

func TestCheckoutBusyLock(t *testing.T) {
	f := newFixture(item("p1", 10, 1))
	f.locker.held[lockKey("c1", "u1")] = true

	_, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Zero(t, f.cart.reads)
}

func TestCheckoutInsertFailureKeepsCart(t *testing.T) {
	f := newFixture(item("p1", 10, 1))
	f.payments.insertErr = errors.New("mongo down")

	_, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	require.Error(t, err)
	assert.False(t, f.cart.cleared)
	assert.Len(t, f.cart.items, 1)
	assert.Empty(t, f.events.Events)
}

func TestCheckoutClearFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(item("p1", 10, 1))
	f.cart.clearErr = errors.New("timeout")

	res, err := f.svc.Checkout(context.Background(), company, "u1", "", bankReq())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Payment.ID)
}

func TestCheckoutUnknownAddress(t *testing.T) {
	f := newFixture(item("p1", 10, 1))
	req := bankReq()
	req.AddressID = "someone-elses"

	_, err := f.svc.Checkout(context.Background(), company, "u1", "", req)
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.Empty(t, f.payments.rows)
}

func TestCheckoutHandler(t *testing.T) {
	f := newFixture(item("p1", 10, 2), item("p2", 5, 3))
	h := NewHandler(f.svc)

	router := httprouter.New()
	router.POST("/api/client/:companySlug/cart/checkout", h.Checkout)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/client/acme/cart/checkout", strings.NewReader(body))
		ctx := context.WithValue(req.Context(), globals.UserIDKey, "u1")
		ctx = context.WithValue(ctx, globals.CompanyKey, company)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req.WithContext(ctx))
		return rr
	}

	rr := do(`{"payment_method_type":"bank","payment_method_id":"bank-1","address_id":"addr-1"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amount":35`)

	rr = do(`{"payment_method_type":"bank","payment_method_id":"bank-1","address_id":"addr-1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "cart already cleared")

	rr = do(`{"payment_method_type":"wire"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
