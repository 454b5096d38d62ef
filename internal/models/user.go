package models

import (
	"fmt"

	"github.com/desertthunder/vibelist/internal/shared"
)

// User is a local account linked to one Spotify user.
type User struct {
	Base
	spotifyID   string
	email       string
	displayName string
}

// NewUser creates a user for the given Spotify account.
func NewUser(spotifyID, email, displayName string) *User {
	return &User{Base: newBase(), spotifyID: spotifyID, email: email, displayName: displayName}
}

func (u *User) SpotifyID() string   { return u.spotifyID }
func (u *User) Email() string       { return u.email }
func (u *User) DisplayName() string { return u.displayName }

func (u *User) SetEmail(email string)      { u.email = email }
func (u *User) SetDisplayName(name string) { u.displayName = name }

func (u *User) Validate() error {
	if u.spotifyID == "" {
		return fmt.Errorf("%w: spotify id is required", shared.ErrInvalidInput)
	}
	return nil
}
