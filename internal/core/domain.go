package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxDescriptionLen bounds the free-text description.
	MaxDescriptionLen = 500

	// PhotoExtension is appended to every generated photo object name.
	PhotoExtension = ".jpg"
)

type (
	// Expense is one expense entry and the unit of sync. Empty strings mean "absent"
	// for the optional fields.
	//
	// LocalPhotoPath and Synced are local bookkeeping and never leave the device.
	Expense struct {
		ID               string
		Amount           decimal.Decimal
		Description      string
		CreatedAt        int64 // epoch millis
		LocalPhotoPath   string
		RemotePhotoURL   string
		OwnerID          string
		OwnerEmail       string
		OwnerDisplayName string
		SharedWithEmail  string
		Synced           bool
	}
)

var (
	ErrMissingID          = errors.New("missing expense id")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// NewExpense builds an unsynced expense owned by the given session. An anonymous
// session leaves the owner fields empty. displayName is the engine's display name at
// call time, not re-derived from the session.
func NewExpense(amount decimal.Decimal, description, photoRef string, s Session, displayName string, now time.Time) Expense {
	e := Expense{
		ID:               uuid.NewString(),
		Amount:           amount,
		Description:      description,
		CreatedAt:        now.UnixMilli(),
		LocalPhotoPath:   photoRef,
		OwnerDisplayName: displayName,
	}
	if s.IsAuthenticated() {
		e.OwnerID = s.UserID
		e.OwnerEmail = s.Email
	}
	return e
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if len(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.SharedWithEmail != "" {
		if err := ValidateEmail(e.SharedWithEmail); err != nil {
			return err
		}
	}
	return nil
}

// VisibleTo reports whether the expense belongs to or is shared with email.
func (e Expense) VisibleTo(email string) bool {
	if email == "" {
		return false
	}
	return e.OwnerEmail == email || e.SharedWithEmail == email
}

// Time returns CreatedAt as a time.Time in UTC.
func (e Expense) Time() time.Time {
	return time.UnixMilli(e.CreatedAt).UTC()
}

// HasPhoto reports whether a remote photo URL is present.
func (e Expense) HasPhoto() bool {
	return e.RemotePhotoURL != ""
}

// PhotoObjectName returns the bucket object name of the remote photo, i.e. whatever
// follows the last '/' of the public URL.
func (e Expense) PhotoObjectName() string {
	if e.RemotePhotoURL == "" {
		return ""
	}
	if i := strings.LastIndex(e.RemotePhotoURL, "/"); i >= 0 {
		return e.RemotePhotoURL[i+1:]
	}
	return e.RemotePhotoURL
}

// NewPhotoObjectName generates a fresh random object name for an uploaded photo.
func NewPhotoObjectName() string {
	return uuid.NewString() + PhotoExtension
}

// ValidateEmail performs a syntactic check of a share recipient.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
