// Package postgres is a RowStore over a plain PostgreSQL database, for self-hosted
// deployments that do not go through PostgREST.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	applog "gastos/internal/log"
	"gastos/internal/remote"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type RowStore struct {
	pool  *pgxpool.Pool
	table string
	log   *slog.Logger
}

// New connects, applies migrations and returns the store.
func New(ctx context.Context, databaseURL string) (*RowStore, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &RowStore{pool: pool, table: remote.DefaultTable, log: slog.With(applog.FieldComponent, applog.ComponentRemote, "backend", "postgres")}, nil
}

func RunMigrations(databaseURL string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme the pgx/v5 migrate driver
// registers.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (s *RowStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *RowStore) Insert(ctx context.Context, row remote.Row) error {
	query := insertQuery(s.table)
	_, err := s.pool.Exec(ctx, query,
		row.ID, row.Amount, row.Description, row.CreatedAt, row.PhotoURL,
		row.SharedWithEmail, row.OwnerID, row.OwnerEmail, row.OwnerName)
	if err != nil {
		s.log.Error("failed to insert row", "id", row.ID, "error", err)
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}

func (s *RowStore) SelectVisible(ctx context.Context, email string) ([]remote.Row, error) {
	query, args := selectQuery(s.table, remote.VisibleFilter(email))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("failed to select rows", "email", email, "error", err)
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []remote.Row
	for rows.Next() {
		var r remote.Row
		if err := rows.Scan(&r.ID, &r.Amount, &r.Description, &r.CreatedAt, &r.PhotoURL,
			&r.SharedWithEmail, &r.OwnerID, &r.OwnerEmail, &r.OwnerName); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RowStore) UpdateSharedWith(ctx context.Context, id, email string) error {
	where, args := remote.Eq("id", id).SQL(1)
	query := fmt.Sprintf("UPDATE %s SET email_compartido = $1 WHERE %s", pgx.Identifier{s.table}.Sanitize(), where)
	if _, err := s.pool.Exec(ctx, query, append([]any{email}, args...)...); err != nil {
		return fmt.Errorf("update shared email: %w", err)
	}
	return nil
}

func (s *RowStore) Delete(ctx context.Context, id string) error {
	where, args := remote.Eq("id", id).SQL(0)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", pgx.Identifier{s.table}.Sanitize(), where)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

func insertQuery(table string) string {
	placeholders := make([]string, len(remote.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(remote.Columns, ", "),
		strings.Join(placeholders, ", "))
}

func selectQuery(table string, f remote.Filter) (string, []any) {
	where, args := f.SQL(0)
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY fecha DESC",
		strings.Join(remote.Columns, ", "), pgx.Identifier{table}.Sanitize(), where), args
}

var _ remote.RowStore = (*RowStore)(nil)
