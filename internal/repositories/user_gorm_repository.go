package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agora/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GORMUserRepository) getOne(query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, append([]interface{}{query}, args...)...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getOne("username = ?", username)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getOne("email = ?", email)
}

// GetByIdentity retrieves a user by username or email.
func (r *GORMUserRepository) GetByIdentity(ident string) (*models.User, error) {
	return r.getOne("username = ? OR email = ?", ident, ident)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	return r.getOne("id = ?", id)
}

// List retrieves the most recently created users, newest first.
func (r *GORMUserRepository) List(limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateRole sets a user's role.
func (r *GORMUserRepository) UpdateRole(id string, role models.Role) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("failed to update role for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteWithPosts removes the user's posts and the user record in one
// transaction so partial deletion is never observable.
func (r *GORMUserRepository) DeleteWithPosts(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Post{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete posts of user %s: %w", id, err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil
	})
	return err
}
