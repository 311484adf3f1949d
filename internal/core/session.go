package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// GuestName is shown while no session exists.
	GuestName = "Invitado"

	// FallbackUserName is used for an authenticated user with neither a profile name
	// nor an email.
	FallbackUserName = "Usuario"
)

// Session is an authenticated identity. The zero value is the anonymous session.
type Session struct {
	UserID      string
	Email       string
	DisplayName string // profile full name, may be empty
}

// Anonymous is the absence of a session.
var Anonymous = Session{}

func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// ResolveDisplayName derives the name shown for a session: the profile name, else
// the capitalised local part of the email, else FallbackUserName. Anonymous sessions
// resolve to GuestName.
func ResolveDisplayName(s Session) string {
	if !s.IsAuthenticated() {
		return GuestName
	}
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	if name := NameFromEmail(s.Email); name != "" {
		return name
	}
	return FallbackUserName
}

// NameFromEmail returns the part of the email before '@' with its first letter
// upper-cased, or "" when the email is empty.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}

// OwnerName returns the denormalised creator name, falling back to a derivation
// from the owner email.
func (e Expense) OwnerName() string {
	if e.OwnerDisplayName != "" {
		return e.OwnerDisplayName
	}
	return NameFromEmail(e.OwnerEmail)
}
