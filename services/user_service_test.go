package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/errors"
	"pairchat/mocks"
	"pairchat/repositories"
)

func Test_GetProfile_should_strip_credentials(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		GetUserByID("alice-id").
		Return(repositories.User{
			ID:           "alice-id",
			Name:         "Alice",
			Email:        "alice@example.com",
			AvatarURL:    "https://cdn.example.com/alice.png",
			PasswordHash: "$argon2id$...",
		}, nil).
		Times(1)

	svc := NewUserService(mockRepo)

	identity, err := svc.GetProfile("alice-id")

	req.NoError(err)
	req.Equal("alice-id", identity.ID)
	req.Equal("Alice", identity.Name)
	req.Equal("https://cdn.example.com/alice.png", identity.AvatarURL)
}

func Test_GetProfile_should_propagate_missing_user(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		GetUserByID("ghost").
		Return(repositories.User{}, errors.ErrUserNotFound).
		Times(1)

	svc := NewUserService(mockRepo)

	_, err := svc.GetProfile("ghost")

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_UpdateProfile_should_persist_new_details(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockRepo.EXPECT().
		UpdateDetails("alice-id", "Alice B.", "https://cdn.example.com/new.png").
		Return(repositories.User{
			ID:        "alice-id",
			Name:      "Alice B.",
			AvatarURL: "https://cdn.example.com/new.png",
		}, nil).
		Times(1)

	svc := NewUserService(mockRepo)

	identity, err := svc.UpdateProfile("alice-id", "Alice B.", "https://cdn.example.com/new.png")

	req.NoError(err)
	req.Equal("Alice B.", identity.Name)
	req.Equal("https://cdn.example.com/new.png", identity.AvatarURL)
}

func Test_UpdateProfile_should_reject_malformed_avatar_url(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	// GIVEN a repository that must not be called
	mockRepo := mocks.NewMockIUserRepository(ctrl)

	svc := NewUserService(mockRepo)

	_, err := svc.UpdateProfile("alice-id", "Alice", "not a url")

	req.Error(err)
}
