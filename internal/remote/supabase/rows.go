package supabase

import (
	"context"
	"net/http"
	"strings"

	"gastos/internal/remote"
)

// RowStore implements remote.RowStore on the PostgREST table endpoint.
type RowStore struct {
	c *Client
}

func (s *RowStore) path() string { return "/rest/v1/" + s.c.table }

func (s *RowStore) Insert(ctx context.Context, row remote.Row) error {
	return s.c.doJSON(ctx, http.MethodPost, s.path(), nil, row,
		map[string]string{"Prefer": "return=minimal"}, nil)
}

func (s *RowStore) SelectVisible(ctx context.Context, email string) ([]remote.Row, error) {
	key, val := remote.VisibleFilter(email).PostgREST()
	query := map[string]string{
		"select": strings.Join(remote.Columns, ","),
		key:      val,
		"order":  "fecha.desc",
	}
	var rows []remote.Row
	if err := s.c.doJSON(ctx, http.MethodGet, s.path(), query, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RowStore) UpdateSharedWith(ctx context.Context, id, email string) error {
	key, val := remote.Eq("id", id).PostgREST()
	body := map[string]string{"email_compartido": email}
	return s.c.doJSON(ctx, http.MethodPatch, s.path(), map[string]string{key: val}, body,
		map[string]string{"Prefer": "return=minimal"}, nil)
}

func (s *RowStore) Delete(ctx context.Context, id string) error {
	key, val := remote.Eq("id", id).PostgREST()
	return s.c.doJSON(ctx, http.MethodDelete, s.path(), map[string]string{key: val}, nil, nil, nil)
}

var _ remote.RowStore = (*RowStore)(nil)
