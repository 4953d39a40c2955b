package handlers

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/session", h.HandleSession)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// Validate the user struct
	if err := h.validate.Struct(user); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.authService.RegisterUser(&user); err != nil {
		log.Printf("Error registering user: %v", err)
		return fail(c, err)
	}

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login. Ident may be a
// username or an email address.
type LoginRequest struct {
	Ident    string `json:"ident" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login, issues a JWT token and binds the user
// to the visitor's session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	token, user, err := h.authService.LoginUser(req.Ident, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Ident, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
		})
	}

	if sess := middleware.CurrentSession(c); sess != nil {
		sess.UserID = user.ID
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleLogout unbinds the user from the session and empties the cart.
// The bearer token simply stops being sent by the client.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if sess := middleware.CurrentSession(c); sess != nil {
		sess.UserID = ""
		sess.Cart.Clear()
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleSession returns the visitor's CSRF token and login state so the
// client can attach the token to mutating requests.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "No session",
		})
	}
	return c.JSON(fiber.Map{
		"csrf_token":    sess.CSRFToken,
		"authenticated": sess.Authenticated(),
		"cart_count":    sess.Cart.Count(),
	})
}
