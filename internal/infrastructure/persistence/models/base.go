package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/shared"
)

// AggregateModel holds the columns every aggregate table shares. Version
// counts saves and backs optimistic locking.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func aggregateModelOf(root shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{
		ID:        root.ID,
		CreatedAt: root.CreatedAt,
		UpdatedAt: root.UpdatedAt,
		Version:   root.Version,
	}
}

// root rebuilds the domain root. Pending events are not stored, so it has none.
func (m AggregateModel) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}
