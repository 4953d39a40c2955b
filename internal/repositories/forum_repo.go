package repositories

import "agora/internal/models"

// ThreadRepository defines the interface for forum thread data access.
type ThreadRepository interface {
	// CreateWithFirstPost inserts the thread and its opening post as one
	// atomic unit; a failure rolls both back.
	CreateWithFirstPost(thread *models.Thread, firstPost *models.Post) error
	GetByID(id string) (*models.Thread, error)
	// ListSummaries returns recent threads with per-thread post counts.
	// Hidden posts are counted only when includeHidden is true.
	ListSummaries(includeHidden bool, limit int) ([]models.ThreadSummary, error)
	// DeleteCascade removes the thread and all of its posts as one
	// atomic unit.
	DeleteCascade(id string) error
}

// PostRepository defines the interface for forum post data access.
type PostRepository interface {
	GetByID(id string) (*models.Post, error)
	// ListByThread returns the thread's posts ordered by creation time
	// ascending.
	ListByThread(threadID string) ([]models.Post, error)
	Create(post *models.Post) error
	UpdateContent(post *models.Post) error
	SetHidden(id string, hidden bool) error
	Delete(id string) error
}
