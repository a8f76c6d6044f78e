package quotations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradedesk/cart"
	"tradedesk/globals"
	"tradedesk/lifecycle"
	"tradedesk/models"
	"tradedesk/notify"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows map[string]*models.Quotation
}

func newMemStore(rows ...models.Quotation) *memStore {
	m := &memStore{rows: map[string]*models.Quotation{}}
	for i := range rows {
		q := rows[i]
		m.rows[q.ID] = &q
	}
	return m
}

func (m *memStore) List(_ context.Context, f Filter) ([]models.Quotation, error) {
	var out []models.Quotation
	for _, q := range m.rows {
		if q.CompanyID != f.CompanyID || (f.UserID != "" && q.UserID != f.UserID) {
			continue
		}
		if f.View != "" && lifecycle.NormalizeQuotation(q.Status) != f.View {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, companyID, id string) (*models.Quotation, error) {
	q, ok := m.rows[id]
	if !ok || q.CompanyID != companyID {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) Insert(_ context.Context, q models.Quotation) error {
	m.rows[q.ID] = &q
	return nil
}

func (m *memStore) SetStatus(_ context.Context, companyID, id, from, to string, selected *int) (bool, error) {
	q, ok := m.rows[id]
	if !ok || q.CompanyID != companyID || q.Status != from {
		return false, nil
	}
	q.Status = to
	if selected != nil {
		q.SelectedOption = selected
	}
	return true, nil
}

func (m *memStore) SetSelectedOption(_ context.Context, companyID, id, status string, selected int) (bool, error) {
	q, ok := m.rows[id]
	if !ok || q.CompanyID != companyID || q.Status != status {
		return false, nil
	}
	q.SelectedOption = &selected
	return true, nil
}

func (m *memStore) LinkOrder(_ context.Context, _, id, orderID string) error {
	m.rows[id].OrderID = orderID
	return nil
}

type productsStub map[string]models.Product

func (p productsStub) Product(_ context.Context, _, id string) (*models.Product, error) {
	prod, ok := p[id]
	if !ok {
		return nil, cart.ErrProductNotFound
	}
	return &prod, nil
}

type orderSpy struct {
	created []models.Order
	err     error
}

func (s *orderSpy) Create(_ context.Context, o models.Order) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o.ID = "order-" + o.QuotationID
	if o.HasReceiver() {
		o.Status = "Processing"
	} else {
		o.Status = "Waiting for information"
	}
	s.created = append(s.created, o)
	return &o, nil
}

func quotation(id, status string) models.Quotation {
	return models.Quotation{
		ID: id, CompanyID: "c1", UserID: "u1", ProductID: "p1", ProductName: "Bolts",
		Quantity: 10, Amount: 100, Currency: "USD", Status: status, Country: "DE",
		Options: []models.QuotationOption{{Label: "Standard", UnitPrice: 10}, {Label: "Express", UnitPrice: 12}},
	}
}

func newSvc(store Store) (*Service, *orderSpy, *notify.Recorder) {
	spy := &orderSpy{}
	rec := &notify.Recorder{}
	products := productsStub{
		"p1": {ID: "p1", Name: "Bolts", Price: 2.5, Currency: "USD", Active: true},
		"p9": {ID: "p9", Name: "Retired", Price: 1, Currency: "USD"},
	}
	return NewService(store, products, spy, rec), spy, rec
}

func TestApproveCreatesOrder(t *testing.T) {
	store := newMemStore(quotation("q1", "Pending"))
	svc, spy, rec := newSvc(store)

	sel := 1
	v, err := svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, &sel)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.QuotationApproved, v.ViewStatus)
	assert.Equal(t, "order-q1", v.OrderID)
	assert.Equal(t, "order-q1", store.rows["q1"].OrderID)

	require.Len(t, spy.created, 1)
	o := spy.created[0]
	assert.Equal(t, "Waiting for information", o.Status)
	assert.Equal(t, 120.0, o.Amount)
	assert.Equal(t, "DE", o.Country)
	assert.Equal(t, []string{notify.QuotationDecided}, rec.Types())

	// confirming later keeps the single order
	_, err = svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionConfirmed, nil)
	require.NoError(t, err)
	assert.Len(t, spy.created, 1)
}

func TestApproveRetryFinishesOrder(t *testing.T) {
	store := newMemStore(quotation("q1", "Pending"))
	svc, spy, _ := newSvc(store)

	spy.err = errors.New("orders unavailable")
	_, err := svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, nil)
	require.Error(t, err)
	assert.Equal(t, "Approved", store.rows["q1"].Status)
	assert.Empty(t, store.rows["q1"].OrderID)

	spy.err = nil
	v, err := svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, nil)
	require.NoError(t, err, "retrying the approval creates the missing order")
	assert.Equal(t, "order-q1", v.OrderID)
	assert.Equal(t, "Approved", store.rows["q1"].Status)
	require.Len(t, spy.created, 1)

	_, err = svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "once linked, approving again is refused")
	assert.Len(t, spy.created, 1)
}

func TestApproveWithReceiverIsProcessing(t *testing.T) {
	q := quotation("q1", "pending")
	q.ReceiverName, q.ReceiverPhone, q.ReceiverAddress = "R", "1", "Addr"
	svc, spy, _ := newSvc(newMemStore(q))

	_, err := svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, "Processing", spy.created[0].Status)
	assert.Equal(t, 100.0, spy.created[0].Amount)
}

func TestDecisionRules(t *testing.T) {
	store := newMemStore(quotation("q1", "Rejected"), quotation("q2", "Pending"))
	svc, spy, _ := newSvc(store)

	_, err := svc.Decide(context.Background(), "c1", "u1", "q1", lifecycle.DecisionApproved, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	bad := 5
	_, err = svc.Decide(context.Background(), "c1", "u1", "q2", lifecycle.DecisionApproved, &bad)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = svc.Decide(context.Background(), "c1", "u2", "q2", lifecycle.DecisionRejected, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := svc.Decide(context.Background(), "c1", "", "q2", lifecycle.DecisionRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.QuotationRejected, v.ViewStatus)
	assert.Empty(t, spy.created)
}

func TestSelectOption(t *testing.T) {
	store := newMemStore(quotation("q1", "Pending"), quotation("q2", "Approved"))
	svc, _, _ := newSvc(store)

	v, err := svc.SelectOption(context.Background(), "c1", "", "q1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, *v.SelectedOption)

	_, err = svc.SelectOption(context.Background(), "c1", "", "q1", 2)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = svc.SelectOption(context.Background(), "c1", "", "q2", 0)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCreateQuotation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newSvc(store)

	v, err := svc.Create(context.Background(), "c1", "u1", CreateInput{ProductID: "p1", Quantity: 4, Country: "de"})
	require.NoError(t, err)
	assert.Equal(t, "pending", v.Status)
	assert.Equal(t, 10.0, v.Amount)
	assert.Equal(t, "DE", v.Country)
	assert.True(t, strings.HasPrefix(v.Reference, "QUO-"))

	_, err = svc.Create(context.Background(), "c1", "u1", CreateInput{ProductID: "p9", Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.Create(context.Background(), "c1", "u1", CreateInput{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestListHandlerNormalizes(t *testing.T) {
	store := newMemStore(quotation("q1", "Confirmed"), quotation("q2", "PENDING"), quotation("q3", "Rejected"))
	svc, _, _ := newSvc(store)
	h := NewHandler(svc)

	router := httprouter.New()
	router.GET("/quotations", h.ListQuotations)
	router.PUT("/quotations/:id/decision", h.Decide)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		ctx := context.WithValue(req.Context(), globals.UserIDKey, "u1")
		ctx = context.WithValue(ctx, globals.CompanyIDKey, "c1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req.WithContext(ctx))
		return rr
	}

	rr := do(http.MethodGet, "/quotations?status=Approved", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"view_status":"approved"`)
	assert.NotContains(t, rr.Body.String(), `"q2"`)

	rr = do(http.MethodPut, "/quotations/q2/decision", `{"status":"approved"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "decisions are case-sensitive")

	rr = do(http.MethodPut, "/quotations/q2/decision", `{"status":"Approved"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(http.MethodPut, "/quotations/q3/decision", `{"status":"Approved"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}
