package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/partner"
)

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	FirstName string     `json:"first_name" binding:"required,max=100"`
	LastName  string     `json:"last_name" binding:"required,max=100"`
	Email     string     `json:"email" binding:"omitempty,email"`
	Phone     string     `json:"phone" binding:"omitempty,max=50"`
	Address   string     `json:"address"`
	City      string     `json:"city" binding:"omitempty,max=100"`
	ZipCode   string     `json:"zip_code" binding:"omitempty,max=20"`
	Country   string     `json:"country" binding:"omitempty,max=100"`
	UserID    *uuid.UUID `json:"user"`
}

// UpdateCustomerRequest represents a partial customer update
type UpdateCustomerRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,max=254"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	Address   *string `json:"address"`
	City      *string `json:"city" binding:"omitempty,max=100"`
	ZipCode   *string `json:"zip_code" binding:"omitempty,max=20"`
	Country   *string `json:"country" binding:"omitempty,max=100"`
	// UserID links the customer to an account; uuid.Nil unlinks it
	UserID *uuid.UUID `json:"user"`
}

// CustomerListFilter represents filter options for customer list
type CustomerListFilter struct {
	Search   string `form:"search"`
	City     string `form:"city"`
	Country  string `form:"country"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=first_name last_name city created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	City      string     `json:"city"`
	ZipCode   string     `json:"zip_code"`
	Country   string     `json:"country"`
	UserID    *uuid.UUID `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToCustomerResponse converts a domain Customer to CustomerResponse
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		ZipCode:   c.ZipCode,
		Country:   c.Country,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToCustomerResponses converts a slice of domain Customers to responses
func ToCustomerResponses(customers []partner.Customer) []CustomerResponse {
	responses := make([]CustomerResponse, len(customers))
	for i := range customers {
		responses[i] = ToCustomerResponse(&customers[i])
	}
	return responses
}
