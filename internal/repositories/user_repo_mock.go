package repositories

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"agora/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// Post cleanup on DeleteWithPosts is delegated to an optional linked
// MockPostRepository so the cascade stays observable in tests.
type MockUserRepository struct {
	users map[string]models.User
	posts *MockPostRepository
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
// posts may be nil when the cascade is irrelevant to the test.
func NewMockUserRepository(posts *MockPostRepository) *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
		posts: posts,
	}
}

// Create adds a new user.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MockUserRepository) findOne(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user: %w", ErrNotFound)
}

// GetByUsername returns a user by username.
func (r *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.findOne(func(u models.User) bool { return u.Username == username })
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.findOne(func(u models.User) bool { return u.Email == email })
}

// GetByIdentity returns a user by username or email.
func (r *MockUserRepository) GetByIdentity(ident string) (*models.User, error) {
	return r.findOne(func(u models.User) bool { return u.Username == ident || u.Email == ident })
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

// List returns up to limit users, newest first.
func (r *MockUserRepository) List(limit int) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// UpdateRole sets a user's role.
func (r *MockUserRepository) UpdateRole(id string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.Role = role
	r.users[id] = user
	return nil
}

// DeleteWithPosts removes the user and, when a post repository is
// linked, all posts they authored.
func (r *MockUserRepository) DeleteWithPosts(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if r.posts != nil {
		r.posts.deleteByUser(id)
	}
	delete(r.users, id)
	return nil
}
