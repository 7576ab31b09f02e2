package repository

import (
	"context"
	"errors"

	"batch-runner/internal/entity"

	"gorm.io/gorm"
)

// UserRepository defines the read-only user directory operations the engine
// needs for access control and display-name resolution.
type UserRepository interface {
	FindByName(ctx context.Context, name string) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
}

// NewUserRepository creates a new GORM-based user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

// FindByName retrieves a user by name. A missing user is reported as
// (nil, nil) since it is an expected condition, not a storage failure.
func (r *userRepository) FindByName(ctx context.Context, name string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByIDs resolves display names for a set of user ids in one query.
func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		names[user.ID] = user.Name
	}
	return names, nil
}
