package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"agora/internal/middleware"
	"agora/internal/services"
)

// ForumHandler handles HTTP requests for forum threads and posts.
type ForumHandler struct {
	service *services.ForumService
}

// NewForumHandler creates a new ForumHandler.
func NewForumHandler(service *services.ForumService) *ForumHandler {
	return &ForumHandler{service: service}
}

// RegisterRoutes registers the forum routes with the Fiber app.
func (h *ForumHandler) RegisterRoutes(router fiber.Router) {
	forum := router.Group("/forum")
	forum.Get("/threads", h.HandleListThreads)
	forum.Post("/threads", h.HandleCreateThread)
	forum.Get("/threads/:id/posts", h.HandleListThreadPosts)
	forum.Post("/threads/:id/posts", h.HandleReply)
	forum.Delete("/threads/:id", h.HandleDeleteThread)
	forum.Put("/posts/:id", h.HandleEditPost)
	forum.Delete("/posts/:id", h.HandleDeletePost)
	forum.Put("/posts/:id/visibility", h.HandleSetVisibility)
}

// HandleListThreads lists recent threads. Hidden posts are excluded
// from non-admin viewers' post counts.
func (h *ForumHandler) HandleListThreads(c *fiber.Ctx) error {
	viewer := middleware.CurrentUser(c)
	threads, err := h.service.ListThreads(viewer.IsAdmin())
	if err != nil {
		log.Printf("Error listing threads: %v", err)
		return fail(c, err)
	}
	return c.JSON(threads)
}

// ThreadRequest is the payload for creating a thread.
type ThreadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HandleCreateThread creates a thread with its opening post.
func (h *ForumHandler) HandleCreateThread(c *fiber.Ctx) error {
	var req ThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	thread, err := h.service.CreateThread(middleware.CurrentUser(c), req.Title, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Thread created",
		"thread":  thread,
	})
}

// HandleListThreadPosts returns a thread's posts in creation order,
// redacting hidden content for non-admin viewers.
func (h *ForumHandler) HandleListThreadPosts(c *fiber.Ctx) error {
	viewer := middleware.CurrentUser(c)
	posts, err := h.service.ListThreadPosts(c.Params("id"), viewer.IsAdmin())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(posts)
}

// PostRequest is the payload for replies and edits.
type PostRequest struct {
	Content string `json:"content"`
}

// HandleReply appends a post to a thread.
func (h *ForumHandler) HandleReply(c *fiber.Ctx) error {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// The thread ID is stored on the new post, so it must not alias the
	// reused params buffer.
	post, err := h.service.Reply(utils.CopyString(c.Params("id")), middleware.CurrentUser(c), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Reply posted",
		"post":    post,
	})
}

// HandleDeleteThread removes a thread and all of its posts. Admin only.
func (h *ForumHandler) HandleDeleteThread(c *fiber.Ctx) error {
	if err := h.service.DeleteThread(c.Params("id"), middleware.CurrentUser(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Thread deleted"})
}

// HandleEditPost edits a post's content within the owner's edit window.
func (h *ForumHandler) HandleEditPost(c *fiber.Ctx) error {
	var req PostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	post, err := h.service.EditPost(c.Params("id"), middleware.CurrentUser(c), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post updated",
		"post":    post,
	})
}

// HandleDeletePost removes a post: owner within the window, admin any
// time.
func (h *ForumHandler) HandleDeletePost(c *fiber.Ctx) error {
	if err := h.service.DeletePost(c.Params("id"), middleware.CurrentUser(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// VisibilityRequest is the payload for hiding or showing a post.
type VisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// HandleSetVisibility hides or shows a post. Admin only; idempotent.
func (h *ForumHandler) HandleSetVisibility(c *fiber.Ctx) error {
	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.SetPostVisibility(c.Params("id"), middleware.CurrentUser(c), req.Hidden); err != nil {
		return fail(c, err)
	}
	message := "Post hidden by admin"
	if !req.Hidden {
		message = "Post shown by admin"
	}
	return c.JSON(fiber.Map{"message": message})
}
