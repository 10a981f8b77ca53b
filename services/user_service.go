package services

import (
	"pairchat/auth"
	"pairchat/domain"
	"pairchat/repositories"
)

type IUserService interface {
	GetProfile(userID string) (domain.UserIdentity, error)
	UpdateProfile(userID, name, avatarURL string) (domain.UserIdentity, error)
}

// UserService exposes the read-only profile lookups and the two
// mutable profile fields the identity subsystem lets users edit.
type UserService struct {
	userRepository repositories.IUserRepository
}

func NewUserService(repo repositories.IUserRepository) IUserService {
	return &UserService{userRepository: repo}
}

// GetProfile returns the public identity of a user, for counterpart
// headers and presence payloads.
func (s *UserService) GetProfile(userID string) (domain.UserIdentity, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		return domain.UserIdentity{}, err
	}
	return user.Identity().Public(), nil
}

func (s *UserService) UpdateProfile(userID, name, avatarURL string) (domain.UserIdentity, error) {
	if err := auth.ValidateUpdateProfile(auth.UpdateProfileRequest{
		Name:      name,
		AvatarURL: avatarURL,
	}); err != nil {
		return domain.UserIdentity{}, err
	}

	user, err := s.userRepository.UpdateDetails(userID, name, avatarURL)
	if err != nil {
		return domain.UserIdentity{}, err
	}
	return user.Identity().Public(), nil
}
