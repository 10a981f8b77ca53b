//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

type IUserRepository interface {
	CreateUser(name, email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	UpdateDetails(id, name, avatarURL string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation, including the password
// hash the domain must never see.
type User struct {
	ID           string
	Name         string
	Email        string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity strips credentials down to the read-only domain view.
func (u User) Identity() domain.UserIdentity {
	return domain.UserIdentity{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
}

// Two keys per user: "user:id:{uuid}" holds the record, and
// "user:email:{email}" holds the id so logins can resolve by email.
// Both are written in the same transaction, so the index never dangles.
func (u UserRepository) CreateUser(name, email, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	record := diskUser{
		ID:           newID,
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte("user:email:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, []byte(newID)); err != nil {
			return err
		}
		return txn.Set([]byte("user:id:"+newID), data)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:email:" + email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return User{}, mapUserNotFound(err)
	}
	return u.GetUserByID(id)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var record diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:id:" + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return User{}, mapUserNotFound(err)
	}
	return toUser(record), nil
}

// UpdateDetails patches the mutable profile fields. Empty arguments
// leave the stored value untouched.
func (u UserRepository) UpdateDetails(id, name, avatarURL string) (User, error) {
	var record diskUser
	err := u.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:id:" + id)
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return err
		}

		if name != "" {
			record.Name = name
		}
		if avatarURL != "" {
			record.AvatarURL = avatarURL
		}

		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return User{}, mapUserNotFound(err)
	}
	return toUser(record), nil
}

func toUser(d diskUser) User {
	return User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		AvatarURL:    d.AvatarURL,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func mapUserNotFound(err error) error {
	if err == badger.ErrKeyNotFound {
		return errors.ErrUserNotFound
	}
	return err
}
