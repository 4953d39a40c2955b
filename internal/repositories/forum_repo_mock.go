package repositories

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"agora/internal/models"
)

// MockPostRepository is an in-memory implementation of PostRepository.
type MockPostRepository struct {
	posts map[string]models.Post
	mu    sync.RWMutex
}

// NewMockPostRepository creates a new instance of MockPostRepository.
func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{posts: make(map[string]models.Post)}
}

// GetByID returns a post by its ID.
func (r *MockPostRepository) GetByID(id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return &post, nil
}

// ListByThread returns the thread's posts ordered by creation time
// ascending.
func (r *MockPostRepository) ListByThread(threadID string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0)
	for _, p := range r.posts {
		if p.ThreadID == threadID {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
	return posts, nil
}

// Create adds a new post.
func (r *MockPostRepository) Create(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	r.posts[post.ID] = *post
	return nil
}

// UpdateContent stores an edited post's content and edited-at stamp.
func (r *MockPostRepository) UpdateContent(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %s: %w", post.ID, ErrNotFound)
	}
	stored.Content = post.Content
	stored.EditedAt = post.EditedAt
	r.posts[post.ID] = stored
	return nil
}

// SetHidden flips the hidden flag; repeating the same state is a no-op.
func (r *MockPostRepository) SetHidden(id string, hidden bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	stored.Hidden = hidden
	r.posts[id] = stored
	return nil
}

// Delete removes a post.
func (r *MockPostRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	delete(r.posts, id)
	return nil
}

func (r *MockPostRepository) deleteByThread(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.posts {
		if p.ThreadID == threadID {
			delete(r.posts, id)
		}
	}
}

func (r *MockPostRepository) deleteByUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.posts {
		if p.UserID == userID {
			delete(r.posts, id)
		}
	}
}

// MockThreadRepository is an in-memory implementation of
// ThreadRepository backed by a MockPostRepository for the cascades.
type MockThreadRepository struct {
	threads map[string]models.Thread
	posts   *MockPostRepository
	mu      sync.RWMutex
}

// NewMockThreadRepository creates a new instance of MockThreadRepository.
func NewMockThreadRepository(posts *MockPostRepository) *MockThreadRepository {
	return &MockThreadRepository{
		threads: make(map[string]models.Thread),
		posts:   posts,
	}
}

// CreateWithFirstPost stores the thread and its opening post together.
func (r *MockThreadRepository) CreateWithFirstPost(thread *models.Thread, firstPost *models.Post) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	firstPost.ThreadID = thread.ID

	r.mu.Lock()
	r.threads[thread.ID] = *thread
	r.mu.Unlock()

	return r.posts.Create(firstPost)
}

// GetByID returns a thread by its ID.
func (r *MockThreadRepository) GetByID(id string) (*models.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	thread, ok := r.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}
	return &thread, nil
}

// ListSummaries returns recent threads newest first with post counts.
func (r *MockThreadRepository) ListSummaries(includeHidden bool, limit int) ([]models.ThreadSummary, error) {
	r.mu.RLock()
	threads := make([]models.Thread, 0, len(r.threads))
	for _, t := range r.threads {
		threads = append(threads, t)
	}
	r.mu.RUnlock()

	sort.Slice(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })
	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}

	summaries := make([]models.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		posts, err := r.posts.ListByThread(t.ID)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, p := range posts {
			if includeHidden || !p.Hidden {
				count++
			}
		}
		summaries = append(summaries, models.ThreadSummary{Thread: t, PostCount: count})
	}
	return summaries, nil
}

// DeleteCascade removes the thread and all of its posts.
func (r *MockThreadRepository) DeleteCascade(id string) error {
	r.mu.Lock()
	if _, ok := r.threads[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}
	delete(r.threads, id)
	r.mu.Unlock()

	r.posts.deleteByThread(id)
	return nil
}
