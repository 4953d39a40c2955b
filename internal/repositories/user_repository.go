package repositories

import "agora/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	// GetByIdentity resolves a user by username or email, whichever
	// matches first. Used by login.
	GetByIdentity(ident string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	List(limit int) ([]models.User, error)
	UpdateRole(id string, role models.Role) error
	// DeleteWithPosts removes the user's posts and the user record as
	// one atomic unit.
	DeleteWithPosts(id string) error
}
