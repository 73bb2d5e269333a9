package partner

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCustomerRepository is a mock implementation of CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Customer, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type eventRecorder struct {
	types []string
}

func (r *eventRecorder) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		r.types = append(r.types, e.EventType())
	}
	return nil
}

func newTestCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("Jane", "Smith")
	require.NoError(t, err)
	require.NoError(t, c.SetAddress("456 Oak Avenue", "Los Angeles", "90001", "USA"))
	c.ClearDomainEvents()
	return c
}

func TestCustomerService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer with contact and address", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		recorder := &eventRecorder{}
		svc := NewCustomerService(repo, nil)
		svc.SetEventPublisher(recorder)

		repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)

		resp, err := svc.Create(ctx, CreateCustomerRequest{
			FirstName: "John",
			LastName:  "Doe",
			Email:     "John@Example.com",
			Phone:     "+1 555-0101",
			Address:   "123 Main Street",
			City:      "New York",
			ZipCode:   "10001",
			Country:   "USA",
		})
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", resp.Email)
		assert.Equal(t, "New York", resp.City)
		assert.Nil(t, resp.UserID)
		assert.Equal(t, []string{partner.EventTypeCustomerCreated}, recorder.types)
	})

	t.Run("links a free user account", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewCustomerService(repo, nil)
		userID := uuid.New()

		repo.On("ExistsByUserID", ctx, userID).Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)

		resp, err := svc.Create(ctx, CreateCustomerRequest{FirstName: "John", LastName: "Doe", UserID: &userID})
		require.NoError(t, err)
		require.NotNil(t, resp.UserID)
		assert.Equal(t, userID, *resp.UserID)
	})

	t.Run("rejects a user linked elsewhere", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewCustomerService(repo, nil)
		userID := uuid.New()

		repo.On("ExistsByUserID", ctx, userID).Return(true, nil)

		_, err := svc.Create(ctx, CreateCustomerRequest{FirstName: "John", LastName: "Doe", UserID: &userID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "USER_ALREADY_LINKED", domainErr.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects blank names", func(t *testing.T) {
		svc := NewCustomerService(new(MockCustomerRepository), nil)
		_, err := svc.Create(ctx, CreateCustomerRequest{FirstName: " ", LastName: "Doe"})
		require.Error(t, err)
	})
}

func TestCustomerService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewCustomerService(repo, nil)
		customer := newTestCustomer(t)

		repo.On("FindByID", ctx, customer.ID).Return(customer, nil)
		repo.On("Save", ctx, customer).Return(nil)

		city := "San Diego"
		resp, err := svc.Update(ctx, customer.ID, UpdateCustomerRequest{City: &city})
		require.NoError(t, err)
		assert.Equal(t, "San Diego", resp.City)
		assert.Equal(t, "456 Oak Avenue", resp.Address)
		assert.Equal(t, "90001", resp.ZipCode)
		assert.Equal(t, "Jane", resp.FirstName)
	})

	t.Run("nil uuid unlinks the user", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewCustomerService(repo, nil)
		customer := newTestCustomer(t)
		require.NoError(t, customer.LinkUser(uuid.New()))

		repo.On("FindByID", ctx, customer.ID).Return(customer, nil)
		repo.On("Save", ctx, customer).Return(nil)

		unlink := uuid.Nil
		resp, err := svc.Update(ctx, customer.ID, UpdateCustomerRequest{UserID: &unlink})
		require.NoError(t, err)
		assert.Nil(t, resp.UserID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := NewCustomerService(repo, nil)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := svc.Update(ctx, id, UpdateCustomerRequest{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCustomerService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCustomerRepository)
	svc := NewCustomerService(repo, nil)
	customer := newTestCustomer(t)

	expected := shared.Filter{
		Page:     2,
		PageSize: 20,
		Search:   "jane",
		Filters:  map[string]any{"country": "USA"},
	}
	repo.On("FindAll", ctx, expected).Return([]partner.Customer{*customer}, nil)
	repo.On("Count", ctx, expected).Return(int64(21), nil)

	items, total, err := svc.List(ctx, CustomerListFilter{Search: "jane", Country: "USA", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Smith", items[0].LastName)
}

func TestCustomerService_GetByUserID(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCustomerRepository)
	svc := NewCustomerService(repo, nil)
	userID := uuid.New()

	repo.On("FindByUserID", ctx, userID).Return(nil, shared.ErrNotFound)
	_, err := svc.GetByUserID(ctx, userID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCustomerService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCustomerRepository)
	recorder := &eventRecorder{}
	svc := NewCustomerService(repo, nil)
	svc.SetEventPublisher(recorder)
	customer := newTestCustomer(t)

	repo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	repo.On("Delete", ctx, customer.ID).Return(nil)

	require.NoError(t, svc.Delete(ctx, customer.ID))
	assert.Equal(t, []string{partner.EventTypeCustomerDeleted}, recorder.types)
}
