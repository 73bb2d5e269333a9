package models

import (
	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/partner"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	AggregateModel
	FirstName string     `gorm:"type:varchar(100);not null"`
	LastName  string     `gorm:"type:varchar(100);not null;index"`
	Email     string     `gorm:"type:varchar(254);not null;default:''"`
	Phone     string     `gorm:"type:varchar(50);not null;default:''"`
	Address   string     `gorm:"type:text;not null;default:''"`
	City      string     `gorm:"type:varchar(100);not null;default:''"`
	ZipCode   string     `gorm:"type:varchar(20);not null;default:''"`
	Country   string     `gorm:"type:varchar(100);not null;default:''"`
	UserID    *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseAggregateRoot: m.root(),
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Email:             m.Email,
		Phone:             m.Phone,
		Address:           m.Address,
		City:              m.City,
		ZipCode:           m.ZipCode,
		Country:           m.Country,
		UserID:            m.UserID,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.AggregateModel = aggregateModelOf(c.BaseAggregateRoot)
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.Email = c.Email
	m.Phone = c.Phone
	m.Address = c.Address
	m.City = c.City
	m.ZipCode = c.ZipCode
	m.Country = c.Country
	m.UserID = c.UserID
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}
