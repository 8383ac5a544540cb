package service

import (
	"fmt"

	"github.com/halcyonlabs/authbase/internal/model"
	"github.com/halcyonlabs/authbase/internal/repository"
)

// UserService covers the profile and admin user-management endpoints. It
// never touches credentials; that belongs to AuthService.
type UserService struct {
	userRepository repository.UserRepository
}

func NewUserService(userRepository repository.UserRepository) *UserService {
	return &UserService{userRepository: userRepository}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *UserService) ByEmail(email string) (*model.User, error) {
	return s.userRepository.ByEmail(email)
}

func (s *UserService) List(offset, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepository.List(offset, limit)
}

// UpdateProfile applies the mutable profile fields. Nil pointers leave the
// current value unchanged.
func (s *UserService) UpdateProfile(userID string, firstName, lastName, avatarURL *string) (*model.User, error) {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	if firstName != nil {
		user.FirstName = firstName
	}
	if lastName != nil {
		user.LastName = lastName
	}
	if avatarURL != nil {
		user.AvatarURL = avatarURL
	}

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// Deactivate soft-deletes a user account.
func (s *UserService) Deactivate(userID string) (*model.User, error) {
	err := s.userRepository.Deactivate(userID)
	if err != nil {
		return nil, err
	}
	return s.userRepository.ByID(userID)
}
