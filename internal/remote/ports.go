// Package remote describes the shared backend: a row-store table of expenses and an
// object bucket holding their photos.
package remote

import (
	"context"
	"errors"
)

// Table and bucket names used by the hosted backend.
const (
	DefaultTable  = "gastos"
	DefaultBucket = "fotos_gastos"
)

// ErrNotConfigured is returned by stubs standing in for a missing backend.
var ErrNotConfigured = errors.New("remote backend not configured")

// Ports for outbound adapters.
type (
	RowStore interface {
		Insert(ctx context.Context, row Row) error
		// SelectVisible returns every row owned by or shared with email.
		SelectVisible(ctx context.Context, email string) ([]Row, error)
		// UpdateSharedWith sets only email_compartido on the row with id.
		UpdateSharedWith(ctx context.Context, id, email string) error
		Delete(ctx context.Context, id string) error
	}

	Bucket interface {
		Upload(ctx context.Context, name string, data []byte, contentType string, upsert bool) error
		PublicURL(name string) string
		Remove(ctx context.Context, name string) error
	}
)
