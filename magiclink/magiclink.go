// Package magiclink issues and checks login-free quotation links. Only a keyed
// hash of each token is stored.
package magiclink

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Access errors, checked in this order.
var (
	ErrInvalidToken = errors.New("Invalid token")
	ErrExpired      = errors.New("Token expired")
	ErrRevoked      = errors.New("Token revoked")
	ErrExhausted    = errors.New("Token max uses reached")
)

const tokenBytes = 32

type Options struct {
	BaseURL string
	Pepper  string
	TTL     time.Duration
	MaxUses int
}

type Service struct {
	store  Store
	mailer notify.Mailer
	opts   Options
	now    func() time.Time
}

func NewService(store Store, mailer notify.Mailer, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 72 * time.Hour
	}
	return &Service{store: store, mailer: mailer, opts: opts, now: time.Now}
}

// Issued is returned once; the raw token is never stored.
type Issued struct {
	Link    models.MagicLink `json:"link"`
	Token   string           `json:"token"`
	URL     string           `json:"url"`
	Emailed bool             `json:"emailed"`
}

// IssueInput overrides the configured defaults when set.
type IssueInput struct {
	Email    string `json:"email,omitempty"`
	TTLHours int    `json:"ttl_hours,omitempty"`
	MaxUses  *int   `json:"max_uses,omitempty"`
}

// HashToken is the keyed BLAKE2b-256 digest stored in place of the token.
func HashToken(pepper, token string) (string, error) {
	key := []byte(pepper)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a link for quotation q and emails it when an address is given.
func (s *Service) Issue(ctx context.Context, company *models.Company, q models.Quotation, createdBy string, in IssueInput) (*Issued, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	hash, err := HashToken(s.opts.Pepper, token)
	if err != nil {
		return nil, err
	}

	ttl, maxUses := s.opts.TTL, s.opts.MaxUses
	if in.TTLHours > 0 {
		ttl = time.Duration(in.TTLHours) * time.Hour
	}
	if in.MaxUses != nil && *in.MaxUses >= 0 {
		maxUses = *in.MaxUses
	}

	now := s.now().UTC()
	link := models.MagicLink{
		ID:          utils.GetUUID(),
		TokenHash:   hash,
		CompanyID:   company.ID,
		QuotationID: q.ID,
		Email:       strings.TrimSpace(in.Email),
		ExpiresAt:   now.Add(ttl),
		MaxUses:     maxUses,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	if err := s.store.Insert(ctx, link); err != nil {
		return nil, fmt.Errorf("insert magic link: %w", err)
	}

	out := &Issued{Link: link, Token: token, URL: s.linkURL(token, q.ID)}
	if link.Email != "" && s.mailer != nil {
		body, err := renderEmail(company.Name, q.Reference, out.URL, link.ExpiresAt)
		if err == nil {
			err = s.mailer.Send(ctx, link.Email, "Your quotation "+q.Reference, body)
		}
		if err != nil {
			logging.Logger.Warn("magic link email", zap.String("link", link.ID), zap.Error(err))
		} else {
			out.Emailed = true
		}
	}
	logging.Logger.Info("magic link issued",
		zap.String("link", link.ID),
		zap.String("quotation", q.ID),
		zap.Time("expires", link.ExpiresAt))
	return out, nil
}

func (s *Service) Revoke(ctx context.Context, companyID, id string) error {
	return s.store.Revoke(ctx, companyID, id, s.now().UTC())
}

// Open authorizes token for quotationID and consumes one use.
func (s *Service) Open(ctx context.Context, token, quotationID string) (*models.MagicLink, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	hash, err := HashToken(s.opts.Pepper, token)
	if err != nil {
		return nil, err
	}
	l, err := s.store.FindByHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := Check(*l, quotationID, now); err != nil {
		return nil, err
	}
	ok, err := s.store.Consume(ctx, l.ID, now)
	if err != nil {
		return nil, fmt.Errorf("consume magic link: %w", err)
	}
	if !ok {
		return nil, ErrExhausted
	}
	l.UseCount++
	return l, nil
}

// Check runs the access checks against a loaded link without consuming a use.
func Check(l models.MagicLink, quotationID string, now time.Time) error {
	switch {
	case l.QuotationID != quotationID:
		return ErrInvalidToken
	case !now.Before(l.ExpiresAt):
		return ErrExpired
	case l.RevokedAt != nil:
		return ErrRevoked
	case l.MaxUses > 0 && l.UseCount >= l.MaxUses:
		return ErrExhausted
	}
	return nil
}

func (s *Service) linkURL(token, quotationID string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/c/" + token + "/quotations/" + quotationID
}

var emailTmpl = template.Must(template.New("magiclink").Parse(`<p>{{.Company}} has shared quotation <strong>{{.Reference}}</strong> with you.</p>
<p><a href="{{.URL}}">Review the quotation</a></p>
<p>This link expires on {{.Expires}}.</p>`))

func renderEmail(company, reference, url string, expires time.Time) (string, error) {
	var b strings.Builder
	err := emailTmpl.Execute(&b, map[string]string{
		"Company":   company,
		"Reference": reference,
		"URL":       url,
		"Expires":   expires.Format("2 Jan 2006 15:04 MST"),
	})
	return b.String(), err
}
