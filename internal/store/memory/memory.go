package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store"
)

// Seed is the initial content of a Store.
type Seed struct {
	Sales     []domain.Sale
	Products  []domain.Product
	Customers []domain.Customer
	Users     []domain.UserAccount
}

type Store struct {
	mu              sync.RWMutex
	sales           []domain.Sale
	products        []domain.Product
	customers       []domain.Customer
	usersByUsername map[string]domain.UserAccount
}

func New(seed Seed) *Store {
	users := make(map[string]domain.UserAccount, len(seed.Users))
	for _, u := range seed.Users {
		u.Username = strings.ToLower(strings.TrimSpace(u.Username))
		users[u.Username] = u
	}
	return &Store{
		sales:           slices.Clone(seed.Sales),
		products:        cloneProducts(seed.Products),
		customers:       slices.Clone(seed.Customers),
		usersByUsername: users,
	}
}

// NewSeeded returns a store filled with roughly thirteen months of demo
// activity ending at now, plus the default admin and viewer accounts.
func NewSeeded(now time.Time, log logrus.FieldLogger) *Store {
	seed := demoSeed(now)
	seed.Users = seedUsers(log)
	return New(seed)
}

// seedUsers builds the dev/demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD; unset values fall back to
// dev defaults with a warning. The postgres store never uses these.
func seedUsers(log logrus.FieldLogger) []domain.UserAccount {
	if log == nil {
		log = logrus.StandardLogger()
	}
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	viewerPwd := envOr("SEED_VIEWER_PASSWORD", "viewer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_VIEWER_PASSWORD") == "" {
		log.WithField("component", "memory-store").Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     domain.Role
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"viewer", viewerPwd, domain.RoleViewer},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.WithError(err).Fatalf("failed to hash seed password for %s", u.username)
		}
		users = append(users, domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func demoSeed(now time.Time) Seed {
	cost := func(v float64) *domain.Amount {
		a := domain.Amount(v)
		return &a
	}
	products := []domain.Product{
		{ID: "prod-tecno-spark", Name: "Tecno Spark 20", Price: 1850, Cost: cost(1420), Stock: 14},
		{ID: "prod-itel-a70", Name: "itel A70", Price: 1150, Cost: cost(890), Stock: 22},
		{ID: "prod-samsung-a15", Name: "Samsung Galaxy A15", Price: 2900, Cost: cost(2350), Stock: 6},
		{ID: "prod-charger-20w", Name: "USB-C Charger 20W", Price: 120, Cost: cost(55), Stock: 80},
		{ID: "prod-powerbank", Name: "Power Bank 20000mAh", Price: 390, Cost: cost(240), Stock: 35},
		{ID: "prod-earbuds", Name: "Wireless Earbuds", Price: 260, Stock: 40},
		{ID: "prod-screen-guard", Name: "Tempered Glass", Price: 45, Cost: cost(12), Stock: 150},
		{ID: "prod-solar-lamp", Name: "Solar Lamp", Price: 310, Cost: cost(200), Stock: 0},
		{ID: "prod-sim-tray", Name: "SIM Tray Tool", Price: 5, Stock: 9},
		{ID: "prod-laptop-bag", Name: "Laptop Bag", Price: 480, Stock: 3},
	}
	customers := []domain.Customer{
		{ID: "cust-aminata", Name: "Aminata Kamara"},
		{ID: "cust-ibrahim", Name: "Ibrahim Sesay"},
		{ID: "cust-fatmata", Name: "Fatmata Conteh"},
		{ID: "cust-mohamed", Name: "Mohamed Bangura"},
		{ID: "cust-isatu", Name: "Isatu Jalloh"},
		{ID: "cust-abu", Name: "Abu Koroma"},
	}

	rng := rand.New(rand.NewPCG(2024, 7))
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := today.AddDate(0, -13, 0)

	sales := make([]domain.Sale, 0, 1024)
	seq := 0
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		for range rng.IntN(4) {
			seq++
			at := day.Add(time.Duration(8+rng.IntN(10))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)
			if at.After(now) {
				continue
			}
			lines := make([]domain.LineItem, 0, 3)
			total := 0.0
			for range 1 + rng.IntN(3) {
				p := products[rng.IntN(len(products))]
				qty := 1 + rng.IntN(3)
				lines = append(lines, domain.LineItem{ProductID: p.ID, Quantity: domain.Amount(qty), Price: p.Price})
				total += float64(qty) * p.Price.Float64()
			}
			sale := domain.Sale{
				ID:        saleID(seq),
				CreatedAt: at.Format(time.RFC3339),
				Total:     domain.Amount(total),
				Items:     domain.EncodeLineItems(lines),
			}
			if rng.IntN(3) > 0 {
				sale.CustomerID = customers[rng.IntN(len(customers))].ID
			}
			sales = append(sales, sale)
		}
	}

	// Records the report must tolerate.
	yesterday := today.AddDate(0, 0, -1).Add(11 * time.Hour)
	sales = append(sales,
		domain.Sale{ID: "sale-malformed-items", CreatedAt: yesterday.Format("2006-01-02 15:04:05"), Total: 75, Items: `[{"productId":"prod-earbuds",`},
		domain.Sale{ID: "sale-deleted-customer", CreatedAt: yesterday.Format(time.RFC3339), Total: 45, CustomerID: "cust-closed-account",
			Items: domain.EncodeLineItems([]domain.LineItem{{ProductID: "prod-screen-guard", Quantity: 1, Price: 45}})},
		domain.Sale{ID: "sale-retired-product", CreatedAt: yesterday.Format(time.RFC3339), Total: 95,
			Items: domain.EncodeLineItems([]domain.LineItem{{ProductID: "prod-retired-radio", Quantity: 1, Price: 95}})},
		domain.Sale{ID: "sale-bad-date", CreatedAt: "pending", Total: 999},
	)

	return Seed{Sales: sales, Products: products, Customers: customers}
}

func saleID(seq int) string {
	return fmt.Sprintf("sale-%05d", seq)
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sales), nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products), nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.customers), nil
}

// AddSale appends a sale, for demos and tests that exercise refresh.
func (s *Store) AddSale(_ context.Context, sale domain.Sale) error {
	if strings.TrimSpace(sale.ID) == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneProducts(src []domain.Product) []domain.Product {
	out := make([]domain.Product, len(src))
	for i, p := range src {
		if p.Cost != nil {
			c := *p.Cost
			p.Cost = &c
		}
		out[i] = p
	}
	return out
}
