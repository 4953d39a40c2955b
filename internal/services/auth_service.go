package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/repositories"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
	}
}

// RegisterUser registers a new user, hashes their password, and saves
// them with the default user role.
func (s *AuthService) RegisterUser(user *models.User) error {
	if _, err := s.userRepo.GetByUsername(user.Username); err == nil {
		return apperr.New(apperr.KindConflict, "username '%s' already taken", user.Username)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return apperr.Wrap(apperr.KindStorage, err, "could not check username")
	}
	if _, err := s.userRepo.GetByEmail(user.Email); err == nil {
		return apperr.New(apperr.KindConflict, "email '%s' already registered", user.Email)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return apperr.Wrap(apperr.KindStorage, err, "could not check email")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to hash password")
	}
	user.Password = string(hashedPassword) // Store the hashed password
	user.Role = models.RoleUser            // Registration never grants admin

	if err := s.userRepo.Create(user); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to register user")
	}
	return nil
}

// LoginUser authenticates a user by username or email and returns a JWT
// token if successful. The failure message stays generic so probing for
// valid usernames gains nothing.
func (s *AuthService) LoginUser(ident, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByIdentity(ident)
	if err != nil {
		return "", nil, apperr.New(apperr.KindForbidden, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperr.New(apperr.KindForbidden, "invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(s.tokenDurat).Unix(), // Token expiration time
		"iat":      time.Now().Unix(),                   // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindStorage, err, "failed to generate token")
	}

	return tokenString, user, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// UserFromClaims resolves the token claims to a live user record, so
// role changes made after token issuance take effect immediately.
func (s *AuthService) UserFromClaims(claims jwt.MapClaims) (*models.User, error) {
	id, _ := claims["user_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("token user lookup: %w", err)
	}
	return user, nil
}
