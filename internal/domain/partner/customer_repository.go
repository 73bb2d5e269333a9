package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByUserID finds the customer linked to a user account
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error)

	// FindByIDs finds multiple customers by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Customer, error)

	// FindAll finds all customers matching the filter.
	// Supported Filters keys: "city", "country".
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error

	// Delete deletes a customer; its invoices are removed with it
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts customers matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByUserID checks if a customer is already linked to the user
	ExistsByUserID(ctx context.Context, userID uuid.UUID) (bool, error)
}
