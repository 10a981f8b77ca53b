package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/auth"
	"pairchat/errors"
	"pairchat/mocks"
	"pairchat/repositories"
)

const strongPassword = "Str0ng&Secret!!"

func Test_Register_should_create_user_and_return_valid_token(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN a repository accepting the new user
	expectedUserID := "8b6f2a1e-1111-4c4c-9c9c-aaaaaaaaaaaa"
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		CreateUser("Bob", "bob@example.com", gomock.Any()).
		Return(expectedUserID, nil).
		Times(1)

	svc := NewAuthService(mockRepo, 24*time.Hour)

	// WHEN registering with a compliant password
	token, userID, err := svc.Register("Bob", "bob@example.com", strongPassword)

	// THEN the token carries the new user's identity
	req.NoError(err)
	req.Equal(expectedUserID, userID)

	claims, err := auth.ValidateToken(string(token))
	req.NoError(err)
	req.Equal(expectedUserID, claims.UserID)
}

func Test_Register_should_hash_password_before_persisting(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN a repository capturing the stored credential
	var stored string
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		CreateUser("Bob", "bob@example.com", gomock.Any()).
		DoAndReturn(func(_, _, hashedPassword string) (string, error) {
			stored = hashedPassword
			return "some-id", nil
		}).
		Times(1)

	svc := NewAuthService(mockRepo, time.Hour)

	// WHEN registering
	_, _, err := svc.Register("Bob", "bob@example.com", strongPassword)
	req.NoError(err)

	// THEN the repository never saw the plain password
	req.NotEqual(strongPassword, stored)

	match, err := auth.ComparePassword(strongPassword, stored)
	req.NoError(err)
	req.True(match)
}

func Test_Register_should_reject_weak_password_without_touching_storage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN a repository that must not be called
	mockRepo := mocks.NewMockIUserRepository(ctrl)

	svc := NewAuthService(mockRepo, time.Hour)

	// WHEN registering with a password missing complexity classes
	_, _, err := svc.Register("Bob", "bob@example.com", "alllowercasebutlong")

	// THEN the validation sentinel surfaces
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func Test_Register_should_propagate_duplicate_email(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		CreateUser("Bob", "bob@example.com", gomock.Any()).
		Return("", errors.ErrUserAlreadyExists).
		Times(1)

	svc := NewAuthService(mockRepo, time.Hour)

	_, _, err := svc.Register("Bob", "bob@example.com", strongPassword)

	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Login_should_return_token_for_correct_password(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN a stored user with a real Argon2id hash
	hash, err := auth.HashPassword(strongPassword)
	req.NoError(err)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		GetUserByEmail("bob@example.com").
		Return(repositories.User{
			ID:           "bob-id",
			Email:        "bob@example.com",
			PasswordHash: hash,
		}, nil).
		Times(1)

	svc := NewAuthService(mockRepo, time.Hour)

	// WHEN logging in with the right password
	token, userID, err := svc.Login("bob@example.com", strongPassword)

	// THEN a valid token is minted for that user
	req.NoError(err)
	req.Equal("bob-id", userID)

	claims, err := auth.ValidateToken(string(token))
	req.NoError(err)
	req.Equal("bob-id", claims.UserID)
}

func Test_Login_should_reject_wrong_password(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	hash, err := auth.HashPassword(strongPassword)
	req.NoError(err)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		GetUserByEmail("bob@example.com").
		Return(repositories.User{ID: "bob-id", PasswordHash: hash}, nil).
		Times(1)

	svc := NewAuthService(mockRepo, time.Hour)

	_, _, err = svc.Login("bob@example.com", "Wr0ng&Password!!")

	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Login_should_mask_unknown_email_as_invalid_credentials(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN no user behind the email
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		GetUserByEmail("ghost@example.com").
		Return(repositories.User{}, errors.ErrUserNotFound).
		Times(1)

	svc := NewAuthService(mockRepo, time.Hour)

	// WHEN logging in
	_, _, err := svc.Login("ghost@example.com", strongPassword)

	// THEN the caller cannot tell a missing account from a bad password
	req.ErrorIs(err, errors.ErrInvalidCredentials)
	req.NotErrorIs(err, errors.ErrUserNotFound)
}
