package services

import (
	"log"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/repositories"
)

// AccountService handles admin-gated user management: role changes and
// account removal, guarded so an admin can never lock themselves out or
// delete their own account through the moderation path.
type AccountService struct {
	users  repositories.UserRepository
	events EventPublisher
}

// NewAccountService creates a new AccountService. events may be nil.
func NewAccountService(users repositories.UserRepository, events EventPublisher) *AccountService {
	return &AccountService{users: users, events: events}
}

// ListUsers returns the most recent accounts for the admin panel.
func (s *AccountService) ListUsers(actor *models.User) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access only")
	}
	users, err := s.users.List(200)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "could not load users")
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// PromoteAdmin grants the admin role to the target user.
func (s *AccountService) PromoteAdmin(actor *models.User, targetID string) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access only")
	}
	if err := s.users.UpdateRole(targetID, models.RoleAdmin); err != nil {
		return writeErr(err, "user not found")
	}
	return nil
}

// RevokeAdmin demotes the target to a regular user. Self-targeting fails
// with SelfProtection regardless of role, before any other check.
func (s *AccountService) RevokeAdmin(actor *models.User, targetID string) error {
	if actor != nil && actor.ID == targetID {
		return apperr.New(apperr.KindSelfProtection, "cannot revoke your own admin role")
	}
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access only")
	}
	if err := s.users.UpdateRole(targetID, models.RoleUser); err != nil {
		return writeErr(err, "user not found")
	}
	s.publish("admin.revoked", map[string]interface{}{
		"targetID": targetID,
		"actorID":  actor.ID,
	})
	return nil
}

// DeleteUser removes the target user and everything they authored as
// one atomic unit; partial deletion is never observable. Self-targeting
// fails with SelfProtection regardless of role.
func (s *AccountService) DeleteUser(actor *models.User, targetID string) error {
	if actor != nil && actor.ID == targetID {
		return apperr.New(apperr.KindSelfProtection, "cannot delete your own account")
	}
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access only")
	}
	if err := s.users.DeleteWithPosts(targetID); err != nil {
		return writeErr(err, "user not found")
	}
	s.publish("user.deleted", map[string]interface{}{
		"targetID": targetID,
		"actorID":  actor.ID,
	})
	return nil
}

func (s *AccountService) publish(event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
