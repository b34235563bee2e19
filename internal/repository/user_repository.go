package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithDefaultCategory inserts the user and its default category in one transaction.
func (r *UserRepository) CreateWithDefaultCategory(ctx context.Context, user *model.User, categoryName string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", classify(err))
		}
		category := model.Category{UserID: user.ID, Name: categoryName}
		if err := tx.Create(&category).Error; err != nil {
			return fmt.Errorf("create default category: %w", classify(err))
		}
		return nil
	})
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", classify(err))
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user by email: %w", classify(err))
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields and returns the fresh row.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, username, email *string) (*model.User, error) {
	updates := map[string]interface{}{}
	if username != nil {
		updates["username"] = *username
	}
	if email != nil {
		updates["email"] = *email
	}

	db := r.db.WithContext(ctx)
	if len(updates) > 0 {
		res := db.Model(&model.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update user: %w", classify(res.Error))
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("update user: %w", ErrNotFound)
		}
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update password: %w", ErrNotFound)
	}
	return nil
}

// Delete removes the user; tasks and categories go with it through FK cascades.
func (r *UserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete user: %w", classify(res.Error))
	}
	return res.RowsAffected > 0, nil
}
