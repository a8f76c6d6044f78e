package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradedesk/globals"
	"tradedesk/lifecycle"
	"tradedesk/models"
	"tradedesk/notify"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	orders    map[string]*models.Order
	receivers []models.ShippingReceiver
}

func newMemStore(orders ...models.Order) *memStore {
	m := &memStore{orders: map[string]*models.Order{}}
	for i := range orders {
		o := orders[i]
		m.orders[o.ID] = &o
	}
	return m
}

func (m *memStore) List(_ context.Context, f Filter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.CompanyID != f.CompanyID || (f.UserID != "" && o.UserID != f.UserID) || (f.Status != "" && o.Status != f.Status) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, companyID, id string) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) Insert(_ context.Context, o models.Order) error {
	m.orders[o.ID] = &o
	return nil
}

func (m *memStore) UpdateReceiver(_ context.Context, companyID, userID, id string, fields map[string]interface{}, createdAfter time.Time) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID || o.UserID != userID ||
		o.Status != string(lifecycle.OrderProcessing) || !o.CreatedInstant().After(createdAfter) {
		return false, nil
	}
	for k, v := range fields {
		switch k {
		case "receiver_name":
			o.ReceiverName = v.(string)
		case "receiver_phone":
			o.ReceiverPhone = v.(string)
		case "receiver_address":
			o.ReceiverAddress = v.(string)
		}
	}
	return true, nil
}

func (m *memStore) InsertReceiver(_ context.Context, r models.ShippingReceiver) error {
	m.receivers = append(m.receivers, r)
	return nil
}

func (m *memStore) FillReceiver(_ context.Context, companyID, userID, id string, r models.ShippingReceiver) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID || o.UserID != userID || o.Status != string(lifecycle.OrderWaitingInfo) {
		return false, nil
	}
	o.ReceiverName, o.ReceiverPhone, o.ReceiverAddress = r.Name, r.Phone, r.Address
	o.Status = string(lifecycle.OrderProcessing)
	return true, nil
}

func (m *memStore) SetStatus(_ context.Context, companyID, id string, from, to lifecycle.OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.CompanyID != companyID || o.Status != string(from) {
		return false, nil
	}
	o.Status = string(to)
	return true, nil
}

type openerSpy struct{ opened []string }

func (s *openerSpy) Open(_ context.Context, o models.Order) (*models.Shipment, error) {
	s.opened = append(s.opened, o.ID)
	return &models.Shipment{OrderID: o.ID}, nil
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func order(id, status string, created time.Time) models.Order {
	return models.Order{
		ID: id, CompanyID: "c1", UserID: "u1", Status: status, Country: "US",
		ReceiverName: "Old", ReceiverPhone: "1", ReceiverAddress: "1 Main",
		Date: created.Truncate(24 * time.Hour), CreatedAt: &created,
	}
}

func newSvc(store Store, now time.Time) (*Service, *openerSpy, *notify.Recorder) {
	spy := &openerSpy{}
	rec := &notify.Recorder{}
	svc := NewService(store, spy, rec)
	svc.now = func() time.Time { return now }
	return svc, spy, rec
}

func strp(s string) *string { return &s }

func TestUpdateReceiverWindow(t *testing.T) {
	store := newMemStore(order("o1", "Processing", t0))

	svc, _, _ := newSvc(store, t0.Add(2*time.Hour+59*time.Minute))
	v, err := svc.UpdateReceiver(context.Background(), "c1", "u1", "o1", lifecycle.ReceiverUpdate{Name: strp("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", v.ReceiverName)
	assert.Equal(t, "US", store.orders["o1"].Country)

	svc, _, _ = newSvc(store, t0.Add(3*time.Hour))
	_, err = svc.UpdateReceiver(context.Background(), "c1", "u1", "o1", lifecycle.ReceiverUpdate{Name: strp("Late")})
	assert.ErrorIs(t, err, lifecycle.ErrWindowClosed)
	assert.Equal(t, "New", store.orders["o1"].ReceiverName)
}

func TestUpdateReceiverRejectsShipped(t *testing.T) {
	store := newMemStore(order("o1", "Shipped", t0))
	svc, _, _ := newSvc(store, t0.Add(time.Minute))

	_, err := svc.UpdateReceiver(context.Background(), "c1", "u1", "o1", lifecycle.ReceiverUpdate{Phone: strp("2")})
	assert.ErrorIs(t, err, lifecycle.ErrNotEditable)
}

func TestUpdateReceiverLegacyDate(t *testing.T) {
	o := order("o1", "Processing", t0)
	o.CreatedAt = nil
	o.Date = t0
	store := newMemStore(o)
	svc, _, _ := newSvc(store, t0.Add(time.Hour))

	_, err := svc.UpdateReceiver(context.Background(), "c1", "u1", "o1", lifecycle.ReceiverUpdate{Address: strp("2 Side St")})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", store.orders["o1"].ReceiverAddress)
}

func TestUpdateReceiverOtherUser(t *testing.T) {
	store := newMemStore(order("o1", "Processing", t0))
	svc, _, _ := newSvc(store, t0)

	_, err := svc.UpdateReceiver(context.Background(), "c1", "u2", "o1", lifecycle.ReceiverUpdate{Name: strp("X")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitReceiverInfo(t *testing.T) {
	o := order("o1", "Waiting for information", t0)
	o.ReceiverName, o.ReceiverPhone, o.ReceiverAddress = "", "", ""
	store := newMemStore(o)
	svc, _, rec := newSvc(store, t0)

	_, err := svc.SubmitReceiverInfo(context.Background(), "c1", "u1", "o1", "Ann", "", "Addr")
	assert.ErrorIs(t, err, ErrInvalidReceiver)

	v, err := svc.SubmitReceiverInfo(context.Background(), "c1", "u1", "o1", "Ann", "+1 555", "5 Elm")
	require.NoError(t, err)
	assert.Equal(t, "Processing", v.Status)
	assert.Equal(t, lifecycle.AccessEditable, v.ReceiverAccess)
	assert.Len(t, store.receivers, 1)
	assert.Equal(t, []string{notify.OrderUpdated}, rec.Types())

	_, err = svc.SubmitReceiverInfo(context.Background(), "c1", "u1", "o1", "Ann", "+1 555", "5 Elm")
	assert.ErrorIs(t, err, lifecycle.ErrNotEditable)
}

func TestSetStatus(t *testing.T) {
	store := newMemStore(order("o1", "Waiting for information", t0))
	svc, spy, _ := newSvc(store, t0)

	_, err := svc.SetStatus(context.Background(), "c1", "o1", "Shipped")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = svc.SetStatus(context.Background(), "c1", "o1", "processing")
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), "c1", "o1", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, spy.opened)

	_, err = svc.SetStatus(context.Background(), "c1", "o1", "Processing")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = svc.SetStatus(context.Background(), "c1", "o1", "Lost")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStatus)
}

func TestCreateStampsDates(t *testing.T) {
	store := newMemStore()
	svc, _, rec := newSvc(store, t0.Add(90*time.Minute))

	o, err := svc.Create(context.Background(), models.Order{CompanyID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Waiting for information", o.Status)
	assert.Equal(t, t0.Add(90*time.Minute), *o.CreatedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), o.Date)
	assert.True(t, strings.HasPrefix(o.Reference, "ORD-"))
	assert.Equal(t, []string{notify.OrderCreated}, rec.Types())

	o, err = svc.Create(context.Background(), models.Order{CompanyID: "c1", UserID: "u1", ReceiverName: "A", ReceiverPhone: "1", ReceiverAddress: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Processing", o.Status)
}

func TestHandlers(t *testing.T) {
	store := newMemStore(order("o1", "Processing", t0), order("o2", "Delivered", t0))
	store.orders["o2"].UserID = "u2"
	svc, _, _ := newSvc(store, t0.Add(4*time.Hour))
	h := NewHandler(svc)

	router := httprouter.New()
	router.GET("/orders", h.ListOrders)
	router.GET("/orders/:id", h.GetOrder)
	router.PATCH("/orders/:id/receiver", h.UpdateReceiver)

	do := func(method, path, body, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		ctx := context.WithValue(req.Context(), globals.UserIDKey, "u1")
		ctx = context.WithValue(ctx, globals.CompanyIDKey, "c1")
		ctx = context.WithValue(ctx, globals.RoleKey, role)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req.WithContext(ctx))
		return rr
	}

	rr := do(http.MethodGet, "/orders/o1", "", "client")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"receiver_access":"window_closed"`)

	rr = do(http.MethodGet, "/orders/o2", "", "client")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(http.MethodGet, "/orders/o2", "", "staff")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(http.MethodPatch, "/orders/o1/receiver", `{"receiver_name":"Late"}`, "client")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "receiver edit window closed")

	rr = do(http.MethodGet, "/orders?status=bogus", "", "client")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
