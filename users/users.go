package users

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/mcc-client/internal/utils"
)

// User is the identity record the backend returns from signup, login and /auth/me.
type User struct {
	ID        int64   `json:"id"`                   // Backend user ID
	Name      string  `json:"name"`                 // Display name
	Email     string  `json:"email"`                // Login email
	Avatar    *string `json:"avatar,omitempty"`     // Avatar image URL, if any
	CreatedAt *string `json:"created_at,omitempty"` // Only present on /auth/me
	LastLogin *string `json:"last_login,omitempty"` // Only present on /auth/me
}

// Valid reports whether the record carries enough to identify a signed in user.
func (u User) Valid() bool {
	return u.ID != 0 || u.Email != ""
}

// DisplayName returns the name, falling back to the email address.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

// Initial is the upper-cased first letter of the display name, used when no
// avatar is set.
func (u User) Initial() string {
	name := u.DisplayName()
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// AvatarOrInitial returns the avatar URL when present, otherwise Initial.
func (u User) AvatarOrInitial() string {
	if avatar, ok := utils.Set(u.Avatar); ok {
		return avatar
	}
	return u.Initial()
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims the email the way the login form does before submission.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// Registration are the signup form fields.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims name and email the way the signup form does before submission.
func (r Registration) Normalize() Registration {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return r
}
