package cart

import (
	"context"
	"strings"

	"tradedesk/models"
	"tradedesk/utils"

	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// View is the cart with per-currency subtotals computed from snapshot prices.
type View struct {
	Items     []models.CartItem `json:"items"`
	Subtotals map[string]string `json:"subtotals"`
	Count     int               `json:"count"`
}

func (s *Service) Get(ctx context.Context, companyID, userID string) (*View, error) {
	items, err := s.store.Items(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	sums := map[string]decimal.Decimal{}
	count := 0
	for _, it := range items {
		line := decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sums[it.Currency] = sums[it.Currency].Add(line)
		count += it.Quantity
	}
	subtotals := make(map[string]string, len(sums))
	for cur, v := range sums {
		subtotals[cur] = v.StringFixed(2)
	}
	return &View{Items: items, Subtotals: subtotals, Count: count}, nil
}

// Add snapshots the live product's name, price and image.
func (s *Service) Add(ctx context.Context, companyID, userID, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	productID = strings.TrimSpace(productID)
	p, err := s.store.Product(ctx, companyID, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return ErrProductNotFound
	}
	return s.store.Add(ctx, models.CartItem{
		ID:          utils.GetUUID(),
		CompanyID:   companyID,
		UserID:      userID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.Price,
		Currency:    p.Currency,
		ImageURL:    p.ImageURL,
	})
}

// SetQuantity replaces the quantity; zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, companyID, userID, productID string, qty int) error {
	switch {
	case qty < 0:
		return ErrInvalidQuantity
	case qty == 0:
		return s.store.Remove(ctx, companyID, userID, productID)
	default:
		return s.store.SetQuantity(ctx, companyID, userID, productID, qty)
	}
}

func (s *Service) Remove(ctx context.Context, companyID, userID, productID string) error {
	return s.store.Remove(ctx, companyID, userID, productID)
}
