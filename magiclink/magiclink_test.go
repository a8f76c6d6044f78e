package magiclink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradedesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	links map[string]*models.MagicLink
}

func newMemStore() *memStore {
	return &memStore{links: map[string]*models.MagicLink{}}
}

func (m *memStore) Insert(_ context.Context, l models.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.ID] = &l
	return nil
}

func (m *memStore) FindByHash(_ context.Context, hash string) (*models.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.TokenHash == hash {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) Revoke(_ context.Context, companyID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.CompanyID != companyID {
		return ErrNotFound
	}
	if l.RevokedAt == nil {
		l.RevokedAt = &at
	}
	return nil
}

func (m *memStore) Consume(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.links[id]
	if l.RevokedAt != nil || !now.Before(l.ExpiresAt) || (l.MaxUses > 0 && l.UseCount >= l.MaxUses) {
		return false, nil
	}
	l.UseCount++
	return true, nil
}

type mailSpy struct {
	to, subject, body string
}

func (m *mailSpy) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return nil
}

var (
	company = &models.Company{ID: "c1", Name: "Acme Supply"}
	quote   = models.Quotation{ID: "q1", CompanyID: "c1", Reference: "QUO-1"}
	t0      = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
)

func newSvc(store Store, mailer *mailSpy) *Service {
	svc := NewService(store, mailer, Options{BaseURL: "https://app.example.com/", Pepper: "pepper", TTL: 72 * time.Hour, MaxUses: 2})
	svc.now = func() time.Time { return t0 }
	return svc
}

func TestIssueStoresOnlyHash(t *testing.T) {
	store := newMemStore()
	mail := &mailSpy{}
	svc := newSvc(store, mail)

	issued, err := svc.Issue(context.Background(), company, quote, "staff-1", IssueInput{Email: "buyer@example.com"})
	require.NoError(t, err)

	assert.Len(t, issued.Token, 43, "32 bytes base64url without padding")
	assert.Equal(t, "https://app.example.com/c/"+issued.Token+"/quotations/q1", issued.URL)
	assert.True(t, issued.Emailed)
	assert.Equal(t, "buyer@example.com", mail.to)
	assert.Contains(t, mail.body, issued.URL)

	stored := store.links[issued.Link.ID]
	assert.NotEqual(t, issued.Token, stored.TokenHash)
	want, _ := HashToken("pepper", issued.Token)
	assert.Equal(t, want, stored.TokenHash)
	assert.Equal(t, t0.Add(72*time.Hour), stored.ExpiresAt)
	assert.Equal(t, 2, stored.MaxUses)
}

func TestHashTokenIsKeyed(t *testing.T) {
	a, err := HashToken("one", "tok")
	require.NoError(t, err)
	b, err := HashToken("two", "tok")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	long, err := HashToken(strings.Repeat("k", 100), "tok")
	require.NoError(t, err)
	assert.Len(t, long, 64)
}

func TestOpenConsumesUses(t *testing.T) {
	store := newMemStore()
	svc := newSvc(store, &mailSpy{})
	issued, err := svc.Issue(context.Background(), company, quote, "staff-1", IssueInput{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.Open(context.Background(), issued.Token, "q1")
		require.NoError(t, err)
	}
	_, err = svc.Open(context.Background(), issued.Token, "q1")
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestOpenCheckOrder(t *testing.T) {
	store := newMemStore()
	svc := newSvc(store, &mailSpy{})
	issued, err := svc.Issue(context.Background(), company, quote, "staff-1", IssueInput{})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), "garbage", "q1")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Open(context.Background(), issued.Token, "q2")
	assert.ErrorIs(t, err, ErrInvalidToken, "scoped to another quotation")

	require.NoError(t, svc.Revoke(context.Background(), "c1", issued.Link.ID))
	_, err = svc.Open(context.Background(), issued.Token, "q1")
	assert.ErrorIs(t, err, ErrRevoked)

	// expiry is reported before revocation
	svc.now = func() time.Time { return t0.Add(72 * time.Hour) }
	_, err = svc.Open(context.Background(), issued.Token, "q1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCheckUnlimited(t *testing.T) {
	l := models.MagicLink{QuotationID: "q1", ExpiresAt: t0.Add(time.Hour), MaxUses: 0, UseCount: 1000}
	assert.NoError(t, Check(l, "q1", t0))
}

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch(strings.NewReader(`{"status":"Confirmed","selected_option":1}`))
	require.NoError(t, err)
	assert.Equal(t, "Confirmed", string(*p.Status))
	assert.Equal(t, 1, *p.SelectedOption)

	bad := []string{
		`{"status":"approved"}`,
		`{"status":"Approved","amount":1}`,
		`{"selected_option":1.5}`,
		`{"selected_option":"1"}`,
		`{}`,
		`[1]`,
	}
	for _, body := range bad {
		_, err := ParsePatch(strings.NewReader(body))
		assert.Error(t, err, body)
	}
}

func TestRevokeUnknown(t *testing.T) {
	svc := newSvc(newMemStore(), &mailSpy{})
	assert.ErrorIs(t, svc.Revoke(context.Background(), "c1", "nope"), ErrNotFound)
}

func TestPatchRejectsBodyBeforeToken(t *testing.T) {
	h := NewHandler(newSvc(newMemStore(), &mailSpy{}), nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/c/tok/quotations/q1", strings.NewReader(`{"country":"US"}`))
	rr := httptest.NewRecorder()
	h.PatchQuotation(rr, req, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "country")
}
