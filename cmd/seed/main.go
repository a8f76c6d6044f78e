// Command seed fills a development database with one storefront and a spread
// of rows in every lifecycle state, including legacy status casings.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"tradedesk/config"
	"tradedesk/db"
	"tradedesk/globals"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/middleware"
	"tradedesk/models"
	"tradedesk/utils"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
)

func main() {
	slug := flag.String("company", "acme", "storefront slug to create")
	products := flag.Int("products", 8, "number of products")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal("config", zap.Error(err))
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logging.Sync()
	globals.JwtSecret = []byte(cfg.JWTSecret)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		logging.Logger.Fatal("mongo", zap.Error(err))
	}
	defer db.Disconnect(context.Background())
	if err := db.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatal("mongo indexes", zap.Error(err))
	}

	s := &seeder{fake: gofakeit.New(0), currency: cfg.DefaultCurrency, now: time.Now().UTC()}
	if err := s.run(ctx, *slug, *products); err != nil {
		logging.Logger.Fatal("seed", zap.Error(err))
	}
}

type seeder struct {
	fake     *gofakeit.Faker
	currency string
	now      time.Time

	company  models.Company
	staff    models.Profile
	client   models.Profile
	products []models.Product
}

func (s *seeder) run(ctx context.Context, slug string, nProducts int) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"company", func(ctx context.Context) error { return s.seedCompany(ctx, slug) }},
		{"profiles", s.seedProfiles},
		{"products", func(ctx context.Context) error { return s.seedProducts(ctx, nProducts) }},
		{"quotations", s.seedQuotations},
		{"orders", s.seedOrders},
		{"payments", s.seedPayments},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		logging.Logger.Info("seeded", zap.String("step", step.name))
	}

	day := 24 * time.Hour
	for _, p := range []models.Profile{s.staff, s.client} {
		token, err := middleware.IssueToken(p.ID, s.company.ID, p.Role, 30*day)
		if err != nil {
			return err
		}
		fmt.Printf("%-6s %s\n%s\n\n", p.Role, p.Email, token)
	}
	return nil
}

func (s *seeder) seedCompany(ctx context.Context, slug string) error {
	s.company = models.Company{
		ID:           utils.GetUUID(),
		Slug:         slug,
		Name:         s.fake.Company(),
		Currency:     s.currency,
		SupportEmail: s.fake.Email(),
		PaymentMethods: []models.PaymentMethodRef{
			{Type: "bank", ID: "bank-main", Label: s.fake.Company() + " Bank"},
			{Type: "crypto", ID: "usdt-trc20", Label: "USDT (TRC20)"},
		},
	}
	_, err := db.CompaniesCollection.InsertOne(ctx, s.company)
	return err
}

func (s *seeder) profile(role string) models.Profile {
	return models.Profile{
		ID:        utils.GetUUID(),
		CompanyID: s.company.ID,
		FullName:  s.fake.Name(),
		Email:     s.fake.Email(),
		Phone:     s.fake.Phone(),
		Role:      role,
	}
}

func (s *seeder) seedProfiles(ctx context.Context) error {
	s.staff = s.profile(globals.RoleStaff)
	s.client = s.profile(globals.RoleClient)
	_, err := db.ProfilesCollection.InsertMany(ctx, []interface{}{s.staff, s.client})
	return err
}

func (s *seeder) seedProducts(ctx context.Context, n int) error {
	docs := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		p := models.Product{
			ID:        utils.GetUUID(),
			CompanyID: s.company.ID,
			Name:      s.fake.ProductName(),
			Price:     float64(s.fake.Number(500, 50000)) / 100,
			Currency:  s.currency,
			ImageURL:  s.fake.URL(),
			Active:    i%5 != 4,
		}
		s.products = append(s.products, p)
		docs = append(docs, p)
	}
	_, err := db.ProductsCollection.InsertMany(ctx, docs)
	return err
}

func (s *seeder) pickProduct() models.Product {
	return s.products[s.fake.Number(0, len(s.products)-1)]
}

// seedQuotations stores every casing the readers have to cope with.
func (s *seeder) seedQuotations(ctx context.Context) error {
	casings := []string{
		string(lifecycle.QuotationPending), "Pending",
		string(lifecycle.DecisionApproved), string(lifecycle.DecisionConfirmed), string(lifecycle.QuotationApproved),
		string(lifecycle.DecisionRejected), string(lifecycle.QuotationRejected),
	}
	docs := make([]interface{}, 0, len(casings))
	for i, status := range casings {
		p := s.pickProduct()
		qty := s.fake.Number(1, 50)
		created := s.now.Add(-time.Duration(i) * 6 * time.Hour)
		docs = append(docs, models.Quotation{
			ID:          utils.GetUUID(),
			Reference:   utils.NewReference("QUO"),
			CompanyID:   s.company.ID,
			UserID:      s.client.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			Amount:      p.Price * float64(qty),
			Currency:    p.Currency,
			Status:      status,
			Options: []models.QuotationOption{
				{Label: "Standard", UnitPrice: p.Price, LeadTimeDays: s.fake.Number(10, 30)},
				{Label: "Express", UnitPrice: p.Price * 1.15, LeadTimeDays: s.fake.Number(3, 9)},
			},
			Country:   s.fake.Country(),
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	_, err := db.QuotationsCollection.InsertMany(ctx, docs)
	return err
}

// seedOrders writes one order per status plus a legacy row without created_at,
// and opens a shipment for the shipped one.
func (s *seeder) seedOrders(ctx context.Context) error {
	statuses := []lifecycle.OrderStatus{
		lifecycle.OrderWaitingInfo, lifecycle.OrderProcessing, lifecycle.OrderShipped, lifecycle.OrderDelivered,
	}
	for i, status := range statuses {
		o := s.order(status, s.now.Add(-time.Duration(i)*30*time.Hour))
		if _, err := db.OrdersCollection.InsertOne(ctx, o); err != nil {
			return err
		}
		if status == lifecycle.OrderShipped {
			if err := s.seedShipment(ctx, o); err != nil {
				return err
			}
		}
	}

	legacy := s.order(lifecycle.OrderProcessing, s.now.Add(-12*time.Hour))
	legacy.CreatedAt = nil
	_, err := db.OrdersCollection.InsertOne(ctx, legacy)
	return err
}

func (s *seeder) order(status lifecycle.OrderStatus, created time.Time) models.Order {
	p := s.pickProduct()
	qty := s.fake.Number(1, 20)
	o := models.Order{
		ID:          utils.GetUUID(),
		Reference:   utils.NewReference("ORD"),
		CompanyID:   s.company.ID,
		UserID:      s.client.ID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		Amount:      p.Price * float64(qty),
		Currency:    p.Currency,
		Status:      string(status),
		Country:     s.fake.Country(),
		Date:        time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt:   &created,
	}
	if status != lifecycle.OrderWaitingInfo {
		o.ReceiverName = s.fake.Name()
		o.ReceiverPhone = s.fake.Phone()
		o.ReceiverAddress = s.fake.Address().Address
	}
	return o
}

func (s *seeder) seedShipment(ctx context.Context, o models.Order) error {
	eta := s.now.Add(time.Duration(s.fake.Number(2, 10)) * 24 * time.Hour)
	_, err := db.ShippingCollection.InsertOne(ctx, models.Shipment{
		ID:                utils.GetUUID(),
		CompanyID:         o.CompanyID,
		UserID:            o.UserID,
		OrderID:           o.ID,
		TrackingID:        utils.NewReference("TRK"),
		Status:            string(lifecycle.ShipmentInTransit),
		Location:          s.fake.City(),
		ImagesURLs:        []string{},
		VideosURLs:        []string{},
		EstimatedDelivery: &eta,
		ReceiverName:      o.ReceiverName,
		ReceiverPhone:     o.ReceiverPhone,
		ReceiverAddress:   o.ReceiverAddress,
		CreatedAt:         s.now,
		UpdatedAt:         s.now,
	})
	return err
}

// seedPayments mixes the historical spellings of accepted payments.
func (s *seeder) seedPayments(ctx context.Context) error {
	statuses := []string{"Accepted", "approved", "completed", "pending", "processing", "rejected", "failed"}
	docs := make([]interface{}, 0, len(statuses))
	for i, status := range statuses {
		p := s.pickProduct()
		qty := s.fake.Number(1, 10)
		method := s.company.PaymentMethods[i%len(s.company.PaymentMethods)]
		created := s.now.Add(-time.Duration(i) * 3 * time.Hour)
		item := models.CartItem{
			ID:          utils.GetUUID(),
			CompanyID:   s.company.ID,
			UserID:      s.client.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			UnitPrice:   p.Price,
			Currency:    p.Currency,
			AddedAt:     created,
		}
		docs = append(docs, models.Payment{
			ID:        utils.GetUUID(),
			Reference: utils.NewReference("PAY"),
			CompanyID: s.company.ID,
			UserID:    s.client.ID,
			Amount:    item.LineTotal(),
			Currency:  p.Currency,
			Method:    method,
			Status:    status,
			Payer: models.Payer{
				UserID: s.client.ID,
				Name:   s.client.FullName,
				Email:  s.client.Email,
				Phone:  s.client.Phone,
			},
			Metadata: models.PaymentMetadata{
				CartItems:     []models.CartItem{item},
				PaymentMethod: method,
			},
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	_, err := db.PaymentsCollection.InsertMany(ctx, docs)
	return err
}
