// Package seeding populates the database with demo users, products and
// invoices, either from fixed fixtures or from Open Food Facts searches.
package seeding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/grocery/backend/internal/application/catalog"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// Repositories groups the stores the seeder writes to
type Repositories struct {
	Users     identity.UserRepository
	Customers partner.CustomerRepository
	Products  catalog.ProductRepository
	Invoices  trade.InvoiceRepository
}

// SleepFunc pauses between external requests
type SleepFunc func(ctx context.Context, d time.Duration) error

// Seeder runs the seeding commands
type Seeder struct {
	repos  Repositories
	source catalogapp.ProductSource
	rng    *rand.Rand
	sleep  SleepFunc
	now    func() time.Time
	out    io.Writer
	logger *zap.Logger
}

// Option configures a Seeder
type Option func(*Seeder)

// WithProductSource sets the external product search used by the import commands
func WithProductSource(source catalogapp.ProductSource) Option {
	return func(s *Seeder) {
		s.source = source
	}
}

// WithRand replaces the random source
func WithRand(rng *rand.Rand) Option {
	return func(s *Seeder) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSleep replaces the pause between external requests
func WithSleep(sleep SleepFunc) Option {
	return func(s *Seeder) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithClock replaces the clock used for backdated invoices
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOutput sets where the progress report is written
func WithOutput(out io.Writer) Option {
	return func(s *Seeder) {
		if out != nil {
			s.out = out
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Seeder) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSeeder creates a seeder over the given repositories
func NewSeeder(repos Repositories, opts ...Option) *Seeder {
	s := &Seeder{
		repos:  repos,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		sleep:  sleepContext,
		now:    time.Now,
		out:    io.Discard,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Seeder) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

// ensureUser returns the user with the given username, creating it when missing
func (s *Seeder) ensureUser(ctx context.Context, account accountFixture) (*identity.User, bool, error) {
	user, err := s.repos.Users.FindByUsername(ctx, account.Username)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, fmt.Errorf("find user %s: %w", account.Username, err)
	}

	user, err = identity.NewUser(account.Username, account.Email, account.Password, account.Role)
	if err != nil {
		return nil, false, err
	}
	if account.FirstName != "" || account.LastName != "" {
		if err := user.SetName(account.FirstName, account.LastName); err != nil {
			return nil, false, err
		}
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", account.Username, err)
	}
	user.ClearDomainEvents()
	return user, true, nil
}

// ensureCustomer returns the customer linked to user, creating it when missing
func (s *Seeder) ensureCustomer(ctx context.Context, user *identity.User, contact contactFixture) (*partner.Customer, bool, error) {
	customer, err := s.repos.Customers.FindByUserID(ctx, user.ID)
	if err == nil {
		return customer, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, fmt.Errorf("find customer for %s: %w", user.Username, err)
	}

	customer, err = partner.NewCustomer(user.FirstName, user.LastName)
	if err != nil {
		return nil, false, err
	}
	if err := customer.SetContact(contact.Phone, user.Email); err != nil {
		return nil, false, err
	}
	if err := customer.SetAddress(contact.Address, contact.City, contact.ZipCode, contact.Country); err != nil {
		return nil, false, err
	}
	if err := customer.LinkUser(user.ID); err != nil {
		return nil, false, err
	}
	if err := s.repos.Customers.Save(ctx, customer); err != nil {
		return nil, false, fmt.Errorf("create customer for %s: %w", user.Username, err)
	}
	customer.ClearDomainEvents()
	return customer, true, nil
}

// allProducts loads the catalog, optionally capped at limit rows
func (s *Seeder) allProducts(ctx context.Context, limit int) ([]catalog.Product, error) {
	filter := shared.Filter{OrderBy: "created_at", OrderDir: "asc"}
	if limit > 0 {
		filter.Page = 1
		filter.PageSize = limit
	}
	return s.repos.Products.FindAll(ctx, filter)
}

func (s *Seeder) allCustomers(ctx context.Context) ([]partner.Customer, error) {
	return s.repos.Customers.FindAll(ctx, shared.Filter{OrderBy: "created_at", OrderDir: "asc"})
}

// pick returns n distinct products in random order
func (s *Seeder) pick(products []catalog.Product, n int) []catalog.Product {
	if n > len(products) {
		n = len(products)
	}
	picked := make([]catalog.Product, n)
	for i, idx := range s.rng.Perm(len(products))[:n] {
		picked[i] = products[idx]
	}
	return picked
}

// between returns a random int in [lo, hi]
func (s *Seeder) between(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

// newInvoice builds a completed invoice with one line per product
func newInvoice(customerID uuid.UUID, products []catalog.Product, quantity func(catalog.Product) int) (*trade.Invoice, error) {
	invoice, err := trade.NewInvoice(customerID, trade.InvoiceStatusCompleted)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if _, err := invoice.AddItem(p.ID, p.Name, quantity(p), p.Price); err != nil {
			return nil, err
		}
	}
	invoice.ClearDomainEvents()
	return invoice, nil
}
