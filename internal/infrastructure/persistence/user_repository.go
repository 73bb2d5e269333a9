package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var _ identity.UserRepository = (*GormUserRepository)(nil)

// GormUserRepository keeps accounts in the users table.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create reports a taken username as USERNAME_EXISTS.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
	if isUniqueViolation(err) {
		return shared.NewDomainError("USERNAME_EXISTS", "Username already exists")
	}
	return err
}

// Update writes every column except created_at.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	res := r.db.WithContext(ctx).Model(model).Select("*").Omit("created_at").Updates(model)
	return affectedOne(res)
}

// Delete keeps a linked customer and clears its user_id.
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.CustomerModel{}).Where("user_id = ?", id).Update("user_id", nil).Error
		if err != nil {
			return err
		}
		return affectedOne(tx.Delete(&models.UserModel{}, "id = ?", id))
	})
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.count(ctx, "username = ?", username)
	return n > 0, err
}

// ExistsByEmail treats an empty email as free; accounts may omit it.
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	n, err := r.count(ctx, "LOWER(email) = ?", strings.ToLower(email))
	return n > 0, err
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, "")
}

func (r *GormUserRepository) first(ctx context.Context, cond string, args ...any) (*identity.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).Where(cond, args...).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// count counts every user when cond is empty.
func (r *GormUserRepository) count(ctx context.Context, cond string, args ...any) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UserModel{})
	if cond != "" {
		query = query.Where(cond, args...)
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

// affectedOne maps a write that matched no row to shared.ErrNotFound.
func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
