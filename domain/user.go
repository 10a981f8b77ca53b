// Package domain contains core concepts of the conversation system.
// No runtime, network, or UI logic should be added here.
package domain

// UserIdentity is the read-only view of a user owned by the
// identity subsystem. The core never mutates it beyond profile fields
// explicitly exposed through UpdateProfile.
type UserIdentity struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// Public strips fields that must never leave the server.
// What remains is safe to push to any session.
func (u UserIdentity) Public() UserIdentity {
	return UserIdentity{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}
