package services

import (
	"fmt"
	"time"

	"pairchat/auth"
	"pairchat/errors"
	"pairchat/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, string, error)
	Register(name, email, password string) (Token, string, error)
}

type AuthService struct {
	userRepository    repositories.IUserRepository
	authTokenDuration time.Duration
}

type Token string

func NewAuthService(repo repositories.IUserRepository, authTokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, authTokenDuration: authTokenDuration}
}

func (s *AuthService) Register(name, email, password string) (Token, string, error) {
	valReq := auth.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity)
	// before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password with Argon2id here, so the repository never
	// sees a plain password.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(name, email, hashedPassword)
	if err != nil {
		return "", "", err // Propagates ErrUserAlreadyExists if email is taken
	}

	token, err := auth.GenerateToken(userID, s.authTokenDuration)
	if err != nil {
		return "", "", errors.ErrTokenGeneration
	}
	return Token(token), userID, nil
}

func (s *AuthService) Login(email, password string) (Token, string, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", "", errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.authTokenDuration)
	if err != nil {
		return "", "", errors.ErrTokenGeneration
	}
	return Token(token), user.ID, nil
}
