package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/stream"

	_ "modernc.org/sqlite"
)

const selectColumns = `id, monto, descripcion, fecha, ruta_foto_local, foto_url,
	email_compartido, user_id, email_creador, nombre_creador, sincronizado`

// SQLiteRepository is the on-device LocalStore.
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger

	// writeMu orders a write with the snapshot it publishes, so subscribers never
	// observe an older list after a newer one.
	writeMu sync.Mutex
	list    *stream.Hub[[]core.Expense]
	total   *stream.Hub[decimal.Decimal]
}

var _ LocalStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger := slog.With(applog.FieldComponent, applog.ComponentStorage)
	logger.Debug("Local store ready", "path", dbPath, "schema_version", version)

	repo := &SQLiteRepository{
		db:    db,
		log:   logger,
		list:  stream.NewHub[[]core.Expense](),
		total: stream.NewHub[decimal.Decimal](),
	}

	if err := repo.publish(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("load initial snapshot: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	r.list.Close()
	r.total.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Upsert inserts the expense or fully replaces the row with the same id.
func (r *SQLiteRepository) Upsert(ctx context.Context, e core.Expense) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gastos (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monto = excluded.monto,
			descripcion = excluded.descripcion,
			fecha = excluded.fecha,
			ruta_foto_local = excluded.ruta_foto_local,
			foto_url = excluded.foto_url,
			email_compartido = excluded.email_compartido,
			user_id = excluded.user_id,
			email_creador = excluded.email_creador,
			nombre_creador = excluded.nombre_creador,
			sincronizado = excluded.sincronizado`,
		e.ID,
		e.Amount.String(),
		e.Description,
		e.CreatedAt,
		nullable(e.LocalPhotoPath),
		nullable(e.RemotePhotoURL),
		nullable(e.SharedWithEmail),
		nullable(e.OwnerID),
		nullable(e.OwnerEmail),
		nullable(e.OwnerDisplayName),
		e.Synced,
	)
	if err != nil {
		return fmt.Errorf("upsert expense %s: %w", e.ID, err)
	}

	r.log.DebugContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, e.ID,
		applog.FieldAmount, e.Amount.String(),
		applog.FieldSynced, e.Synced)

	return r.publish(ctx)
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM gastos WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM gastos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}

	r.log.DebugContext(ctx, "Expense deleted from SQLite", applog.FieldExpenseID, id)
	return r.publish(ctx)
}

// Clear removes every expense.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM gastos`)
	if err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	n, _ := res.RowsAffected()
	r.log.InfoContext(ctx, "Local expenses cleared", applog.FieldCount, n)
	return r.publish(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM gastos ORDER BY fecha DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// Sum adds amounts in Go: monto is stored as decimal text and SQLite's SUM would
// round-trip it through float.
func (r *SQLiteRepository) Sum(ctx context.Context) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT monto FROM gastos`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (r *SQLiteRepository) Watch(ctx context.Context) <-chan []core.Expense {
	return r.list.Subscribe(ctx)
}

func (r *SQLiteRepository) WatchTotal(ctx context.Context) <-chan decimal.Decimal {
	return r.total.Subscribe(ctx)
}

// Count returns the number of stored expenses.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gastos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) publish(ctx context.Context) error {
	expenses, err := r.List(ctx)
	if err != nil {
		return err
	}
	r.list.Publish(expenses)
	r.total.Publish(core.SumAmounts(expenses))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                                         core.Expense
		amount                                    string
		localPath, photoURL, shared, owner, email sql.NullString
		ownerName                                 sql.NullString
	)
	err := s.Scan(
		&e.ID,
		&amount,
		&e.Description,
		&e.CreatedAt,
		&localPath,
		&photoURL,
		&shared,
		&owner,
		&email,
		&ownerName,
		&e.Synced,
	)
	if err != nil {
		return core.Expense{}, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	e.LocalPhotoPath = localPath.String
	e.RemotePhotoURL = photoURL.String
	e.SharedWithEmail = shared.String
	e.OwnerID = owner.String
	e.OwnerEmail = email.String
	e.OwnerDisplayName = ownerName.String
	return e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
