package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tradedesk/globals"
	"tradedesk/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]models.IdempotencyRecord
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]models.IdempotencyRecord{}}
}

func (m *memStore) Insert(_ context.Context, rec models.IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.Key]; ok {
		return ErrDuplicate
	}
	m.recs[rec.Key] = rec
	return nil
}

func (m *memStore) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *memStore) SaveResponse(_ context.Context, key string, response map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.recs[key]
	rec.Response = response
	m.recs[key] = rec
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

func setup(status int) (*httprouter.Router, *int) {
	calls := 0
	router := httprouter.New()
	router.POST("/checkout", Middleware(newMemStore())(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"pay-1"}`))
	}))
	return router, &calls
}

func do(router http.Handler, user, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(Header, key)
	}
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, user))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestReplayReturnsStoredResponse(t *testing.T) {
	router, calls := setup(http.StatusCreated)

	first := do(router, "u1", "k1", `{"a":1}`)
	second := do(router, "u1", "k1", `{"a":1}`)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestDifferentBodyConflicts(t *testing.T) {
	router, calls := setup(http.StatusCreated)
	do(router, "u1", "k1", `{"a":1}`)
	rr := do(router, "u1", "k1", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 1, *calls)
}

func TestKeysAreScopedPerUser(t *testing.T) {
	router, calls := setup(http.StatusCreated)
	do(router, "u1", "k1", `{}`)
	rr := do(router, "u2", "k1", `{}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 2, *calls)
}

func TestServerErrorReleasesKey(t *testing.T) {
	router, calls := setup(http.StatusInternalServerError)
	do(router, "u1", "k1", `{}`)
	do(router, "u1", "k1", `{}`)
	assert.Equal(t, 2, *calls)
}

func TestTransientFailuresAreNotReplayed(t *testing.T) {
	// busy on the first call, succeeds afterwards
	for _, first := range []int{http.StatusTooManyRequests, http.StatusConflict} {
		calls := 0
		router := httprouter.New()
		router.POST("/checkout", Middleware(newMemStore())(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			calls++
			if calls == 1 {
				w.WriteHeader(first)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

		assert.Equal(t, first, do(router, "u1", "k1", `{}`).Code)
		assert.Equal(t, http.StatusCreated, do(router, "u1", "k1", `{}`).Code)
		assert.Equal(t, 2, calls, "status %d", first)
	}
}

func TestClientErrorIsReplayed(t *testing.T) {
	router, calls := setup(http.StatusBadRequest)
	do(router, "u1", "k1", `{}`)
	rr := do(router, "u1", "k1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 1, *calls)
}

func TestNoHeaderPassesThrough(t *testing.T) {
	router, calls := setup(http.StatusOK)
	do(router, "u1", "", `{}`)
	do(router, "u1", "", `{}`)
	require.Equal(t, 2, *calls)
}
