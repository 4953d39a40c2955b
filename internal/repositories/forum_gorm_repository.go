package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"agora/internal/models"
)

// GORMThreadRepository is a GORM implementation of ThreadRepository.
type GORMThreadRepository struct {
	db *gorm.DB
}

// NewGORMThreadRepository creates a new instance of GORMThreadRepository.
func NewGORMThreadRepository(db *gorm.DB) *GORMThreadRepository {
	return &GORMThreadRepository{db: db}
}

// CreateWithFirstPost inserts the thread and its opening post inside one
// transaction; both land or neither does.
func (r *GORMThreadRepository) CreateWithFirstPost(thread *models.Thread, firstPost *models.Post) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	if firstPost.ID == "" {
		firstPost.ID = uuid.New().String()
	}
	firstPost.ThreadID = thread.ID

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		if err := tx.Create(firstPost).Error; err != nil {
			return fmt.Errorf("failed to create first post: %w", err)
		}
		return nil
	})
	return err
}

// GetByID retrieves a thread by its ID.
func (r *GORMThreadRepository) GetByID(id string) (*models.Thread, error) {
	var thread models.Thread
	if err := r.db.First(&thread, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("thread %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get thread %s: %w", id, err)
	}
	return &thread, nil
}

// ListSummaries returns recent threads newest first with post counts.
// Hidden posts are excluded from the count unless includeHidden is set.
func (r *GORMThreadRepository) ListSummaries(includeHidden bool, limit int) ([]models.ThreadSummary, error) {
	var threads []models.Thread
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&threads).Error; err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	summaries := make([]models.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		var count int64
		q := r.db.Model(&models.Post{}).Where("thread_id = ?", t.ID)
		if !includeHidden {
			q = q.Where("hidden = ?", false)
		}
		if err := q.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count posts of thread %s: %w", t.ID, err)
		}
		summaries = append(summaries, models.ThreadSummary{Thread: t, PostCount: int(count)})
	}
	return summaries, nil
}

// DeleteCascade removes the thread and all of its posts in one
// transaction.
func (r *GORMThreadRepository) DeleteCascade(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Post{}, "thread_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete posts of thread %s: %w", id, err)
		}
		res := tx.Delete(&models.Thread{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete thread %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("thread %s: %w", id, ErrNotFound)
		}
		return nil
	})
	return err
}

// GORMPostRepository is a GORM implementation of PostRepository.
type GORMPostRepository struct {
	db *gorm.DB
}

// NewGORMPostRepository creates a new instance of GORMPostRepository.
func NewGORMPostRepository(db *gorm.DB) *GORMPostRepository {
	return &GORMPostRepository{db: db}
}

// GetByID retrieves a post by its ID.
func (r *GORMPostRepository) GetByID(id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}
	return &post, nil
}

// ListByThread returns the thread's posts ordered by creation time
// ascending.
func (r *GORMPostRepository) ListByThread(threadID string) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.Where("thread_id = ?", threadID).Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts of thread %s: %w", threadID, err)
	}
	return posts, nil
}

// Create inserts a new post.
func (r *GORMPostRepository) Create(post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if err := r.db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// UpdateContent persists an edited post's content and edited-at stamp.
func (r *GORMPostRepository) UpdateContent(post *models.Post) error {
	res := r.db.Model(&models.Post{}).Where("id = ?", post.ID).
		Updates(map[string]interface{}{"content": post.Content, "edited_at": post.EditedAt})
	if res.Error != nil {
		return fmt.Errorf("failed to update post %s: %w", post.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", post.ID, ErrNotFound)
	}
	return nil
}

// SetHidden flips the hidden flag. Setting the same state twice is a
// no-op success.
func (r *GORMPostRepository) SetHidden(id string, hidden bool) error {
	res := r.db.Model(&models.Post{}).Where("id = ?", id).Update("hidden", hidden)
	if res.Error != nil {
		return fmt.Errorf("failed to set hidden on post %s: %w", id, res.Error)
	}
	return nil
}

// Delete removes a post permanently.
func (r *GORMPostRepository) Delete(id string) error {
	res := r.db.Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}
