package partner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
)

var (
	phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Customer is a buyer who receives invoices.
// A customer may be linked to at most one user account.
type Customer struct {
	shared.BaseAggregateRoot
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	ZipCode   string
	Country   string
	UserID    *uuid.UUID
}

// NewCustomer creates a new customer
func NewCustomer(firstName, lastName string) (*Customer, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := validateName("first name", firstName); err != nil {
		return nil, err
	}
	if err := validateName("last name", lastName); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         firstName,
		LastName:          lastName,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Rename changes the customer's names
func (c *Customer) Rename(firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := validateName("first name", firstName); err != nil {
		return err
	}
	if err := validateName("last name", lastName); err != nil {
		return err
	}

	c.FirstName = firstName
	c.LastName = lastName
	c.Touch()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// SetContact sets the customer's phone and email
func (c *Customer) SetContact(phone, email string) error {
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	c.Phone = phone
	c.Email = strings.ToLower(email)
	c.Touch()

	return nil
}

// SetAddress sets the customer's postal address
func (c *Customer) SetAddress(address, city, zipCode, country string) error {
	if utf8.RuneCountInString(city) > 100 {
		return shared.NewDomainError("INVALID_CITY", "City cannot exceed 100 characters")
	}
	if utf8.RuneCountInString(zipCode) > 20 {
		return shared.NewDomainError("INVALID_ZIP_CODE", "Zip code cannot exceed 20 characters")
	}
	if utf8.RuneCountInString(country) > 100 {
		return shared.NewDomainError("INVALID_COUNTRY", "Country cannot exceed 100 characters")
	}

	c.Address = strings.TrimSpace(address)
	c.City = strings.TrimSpace(city)
	c.ZipCode = strings.TrimSpace(zipCode)
	c.Country = strings.TrimSpace(country)
	c.Touch()

	return nil
}

// LinkUser attaches the customer to a user account
func (c *Customer) LinkUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if c.UserID != nil && *c.UserID != userID {
		return shared.NewDomainError("ALREADY_LINKED", "Customer is already linked to another user")
	}
	c.UserID = &userID
	c.Touch()
	return nil
}

// UnlinkUser detaches the user account
func (c *Customer) UnlinkUser() {
	c.UserID = nil
	c.Touch()
}

// HasUser returns true if the customer is linked to a user account
func (c *Customer) HasUser() bool {
	return c.UserID != nil
}

// FullName returns "first last"
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func validateName(field, name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer "+field+" cannot be empty")
	}
	if utf8.RuneCountInString(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Customer "+field+" cannot exceed 100 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if utf8.RuneCountInString(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	if !phonePattern.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if utf8.RuneCountInString(email) > 254 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
