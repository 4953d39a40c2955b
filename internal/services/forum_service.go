package services

import (
	"log"
	"strings"
	"time"

	"agora/internal/apperr"
	"agora/internal/clock"
	"agora/internal/models"
	"agora/internal/repositories"
)

// DefaultEditWindow is how long a post's owner may edit or delete it
// after creation.
const DefaultEditWindow = 10 * time.Minute

// HiddenContentPlaceholder replaces the content of hidden posts for
// non-admin viewers. The real content never leaves the server for them.
const HiddenContentPlaceholder = "This post has been hidden by an administrator."

// EventPublisher publishes moderation audit events. Implemented by
// pkg/events.Client; a nil publisher disables publishing.
type EventPublisher interface {
	Publish(event string, payload map[string]interface{}) error
}

// ForumService enforces who may create, edit, delete, hide or view forum
// content based on role, ownership and elapsed time.
type ForumService struct {
	threads repositories.ThreadRepository
	posts   repositories.PostRepository
	clk     clock.Clock
	window  time.Duration
	events  EventPublisher
}

// NewForumService creates a new ForumService. window <= 0 falls back to
// DefaultEditWindow; events may be nil.
func NewForumService(threads repositories.ThreadRepository, posts repositories.PostRepository, clk clock.Clock, window time.Duration, events EventPublisher) *ForumService {
	if window <= 0 {
		window = DefaultEditWindow
	}
	return &ForumService{
		threads: threads,
		posts:   posts,
		clk:     clk,
		window:  window,
		events:  events,
	}
}

// CanEditOrDelete is the single predicate gating author edits and
// deletes. Admins never get author rights: they may only hide or delete,
// keeping "moderate" and "author" separate. Owners lose the right once
// the edit window has elapsed.
func (s *ForumService) CanEditOrDelete(post *models.Post, actor *models.User) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return false
	}
	if post.UserID != actor.ID {
		return false
	}
	return s.clk.Now().Sub(post.CreatedAt) <= s.window
}

// CreateThread creates a thread and its opening post as one atomic unit.
func (s *ForumService) CreateThread(actor *models.User, title, content string) (*models.Thread, error) {
	if actor == nil {
		return nil, apperr.New(apperr.KindForbidden, "login required")
	}
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, apperr.New(apperr.KindValidation, "title and content are required")
	}

	now := s.clk.Now()
	thread := &models.Thread{UserID: actor.ID, Title: title, CreatedAt: now}
	firstPost := &models.Post{UserID: actor.ID, Content: content, CreatedAt: now}
	if err := s.threads.CreateWithFirstPost(thread, firstPost); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not create thread")
	}
	return thread, nil
}

// Reply appends a post to an existing thread.
func (s *ForumService) Reply(threadID string, actor *models.User, content string) (*models.Post, error) {
	if actor == nil {
		return nil, apperr.New(apperr.KindForbidden, "login required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.KindValidation, "message cannot be empty")
	}
	if _, err := s.threads.GetByID(threadID); err != nil {
		return nil, lookupErr(err, "thread not found")
	}

	post := &models.Post{
		ThreadID:  threadID,
		UserID:    actor.ID,
		Content:   content,
		CreatedAt: s.clk.Now(),
	}
	if err := s.posts.Create(post); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not post reply")
	}
	return post, nil
}

// EditPost replaces a post's content and stamps the edited-at marker.
// Only the owner, within the edit window, may edit.
func (s *ForumService) EditPost(postID string, actor *models.User, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.KindValidation, "message cannot be empty")
	}
	post, err := s.posts.GetByID(postID)
	if err != nil {
		return nil, lookupErr(err, "post not found")
	}
	if !s.CanEditOrDelete(post, actor) {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to edit this post")
	}

	now := s.clk.Now()
	post.Content = content
	post.EditedAt = &now
	if err := s.posts.UpdateContent(post); err != nil {
		return nil, writeErr(err, "post not found")
	}
	return post, nil
}

// DeletePost removes a post permanently. Owners may delete within the
// edit window; admins may delete at any time.
func (s *ForumService) DeletePost(postID string, actor *models.User) error {
	post, err := s.posts.GetByID(postID)
	if err != nil {
		return lookupErr(err, "post not found")
	}
	if !s.CanEditOrDelete(post, actor) && !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "not allowed to delete this post")
	}
	if err := s.posts.Delete(postID); err != nil {
		return writeErr(err, "post not found")
	}
	if actor.IsAdmin() {
		s.publish("post.deleted", map[string]interface{}{
			"postID":   postID,
			"threadID": post.ThreadID,
			"actorID":  actor.ID,
		})
	}
	return nil
}

// DeleteThread removes a thread and all of its posts as one atomic
// unit. Admin only.
func (s *ForumService) DeleteThread(threadID string, actor *models.User) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access only")
	}
	if _, err := s.threads.GetByID(threadID); err != nil {
		return lookupErr(err, "thread not found")
	}
	if err := s.threads.DeleteCascade(threadID); err != nil {
		return writeErr(err, "thread not found")
	}
	s.publish("thread.deleted", map[string]interface{}{
		"threadID": threadID,
		"actorID":  actor.ID,
	})
	return nil
}

// SetPostVisibility hides or shows a post. Admin only; setting the same
// state twice is a no-op success.
func (s *ForumService) SetPostVisibility(postID string, actor *models.User, hidden bool) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access only")
	}
	post, err := s.posts.GetByID(postID)
	if err != nil {
		return lookupErr(err, "post not found")
	}
	if post.Hidden == hidden {
		return nil
	}
	if err := s.posts.SetHidden(postID, hidden); err != nil {
		return writeErr(err, "post not found")
	}

	event := "post.hidden"
	if !hidden {
		event = "post.shown"
	}
	s.publish(event, map[string]interface{}{
		"postID":  postID,
		"actorID": actor.ID,
	})
	return nil
}

// PostView is one post as rendered for a particular viewer.
type PostView struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Hidden    bool       `json:"hidden"`
}

// ListThreadPosts returns a thread's posts ordered by creation time
// ascending. Non-admin viewers get hidden posts with the content
// replaced by a placeholder; admins see the real content plus the hidden
// indicator.
func (s *ForumService) ListThreadPosts(threadID string, viewerIsAdmin bool) ([]PostView, error) {
	if _, err := s.threads.GetByID(threadID); err != nil {
		return nil, lookupErr(err, "thread not found")
	}
	posts, err := s.posts.ListByThread(threadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not load posts")
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		view := PostView{
			ID:        p.ID,
			ThreadID:  p.ThreadID,
			UserID:    p.UserID,
			Content:   p.Content,
			CreatedAt: p.CreatedAt,
			EditedAt:  p.EditedAt,
			Hidden:    p.Hidden,
		}
		if p.Hidden && !viewerIsAdmin {
			view.Content = HiddenContentPlaceholder
		}
		views = append(views, view)
	}
	return views, nil
}

// ListThreads returns recent threads with post counts. Hidden posts are
// excluded from the counts for non-admin viewers.
func (s *ForumService) ListThreads(viewerIsAdmin bool) ([]models.ThreadSummary, error) {
	summaries, err := s.threads.ListSummaries(viewerIsAdmin, 100)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not load threads")
	}
	return summaries, nil
}

func (s *ForumService) publish(event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
