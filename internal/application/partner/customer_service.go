package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/partner"
	"github.com/grocery/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo   partner.CustomerRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := partner.NewCustomer(req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if err := customer.SetContact(req.Phone, req.Email); err != nil {
		return nil, err
	}
	if err := customer.SetAddress(req.Address, req.City, req.ZipCode, req.Country); err != nil {
		return nil, err
	}
	if req.UserID != nil && *req.UserID != uuid.Nil {
		if err := s.linkUser(ctx, customer, *req.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByUserID retrieves the customer linked to a user account
func (s *CustomerService) GetByUserID(ctx context.Context, userID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}
	if filter.City != "" {
		domainFilter = domainFilter.With("city", filter.City)
	}
	if filter.Country != "" {
		domainFilter = domainFilter.With("country", filter.Country)
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToCustomerResponses(customers), total, nil
}

// Update applies a partial update
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil || req.LastName != nil {
		first, last := customer.FirstName, customer.LastName
		if req.FirstName != nil {
			first = *req.FirstName
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		if err := customer.Rename(first, last); err != nil {
			return nil, err
		}
	}

	if req.Phone != nil || req.Email != nil {
		phone, email := customer.Phone, customer.Email
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if err := customer.SetContact(phone, email); err != nil {
			return nil, err
		}
	}

	if req.Address != nil || req.City != nil || req.ZipCode != nil || req.Country != nil {
		address, city, zip, country := customer.Address, customer.City, customer.ZipCode, customer.Country
		if req.Address != nil {
			address = *req.Address
		}
		if req.City != nil {
			city = *req.City
		}
		if req.ZipCode != nil {
			zip = *req.ZipCode
		}
		if req.Country != nil {
			country = *req.Country
		}
		if err := customer.SetAddress(address, city, zip, country); err != nil {
			return nil, err
		}
	}

	if req.UserID != nil {
		switch {
		case *req.UserID == uuid.Nil:
			customer.UnlinkUser()
		case customer.UserID == nil || *customer.UserID != *req.UserID:
			if customer.UserID != nil {
				customer.UnlinkUser()
			}
			if err := s.linkUser(ctx, customer, *req.UserID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Delete deletes a customer; its invoices are removed with it
func (s *CustomerService) Delete(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.customerRepo.Delete(ctx, customerID); err != nil {
		return err
	}

	customer.AddDomainEvent(partner.NewCustomerDeletedEvent(customer))
	s.publishEvents(ctx, customer)
	return nil
}

func (s *CustomerService) linkUser(ctx context.Context, customer *partner.Customer, userID uuid.UUID) error {
	taken, err := s.customerRepo.ExistsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if taken {
		return shared.NewDomainError("USER_ALREADY_LINKED", "User is already linked to another customer")
	}
	return customer.LinkUser(userID)
}

func (s *CustomerService) publishEvents(ctx context.Context, customer *partner.Customer) {
	events := customer.GetDomainEvents()
	customer.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish customer events",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err))
	}
}
