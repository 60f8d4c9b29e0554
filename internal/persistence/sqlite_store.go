package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// sqliteTimeLayout is fixed width so that text comparison orders timestamps chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite's LOWER folds ASCII only. Search compares through fold_lower so non-ASCII text matches
// case-insensitively, the same way the other stores do.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold_lower", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			}
			return args[0], nil
		})
}

// sqlExecutor is satisfied by *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store on an embedded SQLite database file.
type SQLiteStore struct {
	db    *sql.DB
	exec  sqlExecutor
	inTx  bool
	now   func() time.Time
	newID func() string
}

// OpenSQLite opens (creating when missing) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps PRAGMA foreign_keys in effect for every statement.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:    db,
		exec:  db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			contact_number TEXT NOT NULL,
			product_category TEXT NOT NULL,
			product_model TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			problem TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in-progress', 'closed'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_updated_at ON tickets(updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS ticket_history (
			id TEXT PRIMARY KEY,
			ticket_id TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
			timestamp TEXT NOT NULL,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_history_ticket ON ticket_history(ticket_id, timestamp DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

const sqliteTicketColumns = `id, created_at, updated_at, customer_name, contact_number, product_category,
	product_model, serial_number, problem, status`

const sqliteHistoryColumns = `id, ticket_id, timestamp, action, description, status`

func (s *SQLiteStore) SelectTickets(ctx context.Context, query TicketQuery) ([]TicketRow, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if query.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, query.Status)
	}
	if query.Search != "" {
		pattern := containsPattern(query.Search)
		clauses = append(clauses, `(fold_lower(customer_name) LIKE ? ESCAPE '\'
			OR fold_lower(product_model) LIKE ? ESCAPE '\'
			OR fold_lower(serial_number) LIKE ? ESCAPE '\'
			OR fold_lower(id) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	rows, err := s.exec.QueryContext(ctx,
		`SELECT `+sqliteTicketColumns+` FROM tickets WHERE `+strings.Join(clauses, " AND ")+
			` ORDER BY updated_at DESC, rowid DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TicketRow
	for rows.Next() {
		row, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) SelectTicket(ctx context.Context, id string) (TicketRow, error) {
	row, err := scanSQLiteTicket(s.exec.QueryRowContext(ctx,
		`SELECT `+sqliteTicketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return TicketRow{}, ErrNoRows
	}
	return row, err
}

func (s *SQLiteStore) InsertTicket(ctx context.Context, in TicketInsert) (TicketRow, error) {
	now := s.now()
	row := TicketRow{
		ID:              s.newID(),
		CreatedAt:       now,
		UpdatedAt:       now,
		CustomerName:    in.CustomerName,
		ContactNumber:   in.ContactNumber,
		ProductCategory: in.ProductCategory,
		ProductModel:    in.ProductModel,
		SerialNumber:    in.SerialNumber,
		Problem:         in.Problem,
		Status:          in.Status,
	}
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO tickets(`+sqliteTicketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		formatSQLiteTime(row.CreatedAt),
		formatSQLiteTime(row.UpdatedAt),
		row.CustomerName,
		row.ContactNumber,
		row.ProductCategory,
		row.ProductModel,
		row.SerialNumber,
		row.Problem,
		row.Status,
	)
	if err != nil {
		return TicketRow{}, err
	}
	return row, nil
}

func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, id, status string) (TicketRow, error) {
	res, err := s.exec.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatSQLiteTime(s.now()), id)
	if err != nil {
		return TicketRow{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return TicketRow{}, ErrNoRows
	}
	return s.SelectTicket(ctx, id)
}

func (s *SQLiteStore) DeleteTicket(ctx context.Context, id string) error {
	res, err := s.exec.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) SelectHistory(ctx context.Context, ticketIDs []string) ([]HistoryRow, error) {
	query := `SELECT ` + sqliteHistoryColumns + ` FROM ticket_history`
	var args []any
	if ticketIDs != nil {
		if len(ticketIDs) == 0 {
			return nil, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ticketIDs)), ",")
		query += ` WHERE ticket_id IN (` + placeholders + `)`
		for _, id := range ticketIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryRow
	for rows.Next() {
		var (
			row       HistoryRow
			timestamp string
			status    sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.TicketID, &timestamp, &row.Action, &row.Description, &status); err != nil {
			return nil, err
		}
		row.Timestamp = parseSQLiteTime(timestamp)
		if status.Valid {
			value := status.String
			row.Status = &value
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) InsertHistory(ctx context.Context, in HistoryInsert) (HistoryRow, error) {
	row := HistoryRow{
		ID:          s.newID(),
		TicketID:    in.TicketID,
		Timestamp:   s.now(),
		Action:      in.Action,
		Description: in.Description,
		Status:      in.Status,
	}
	var status any
	if in.Status != nil {
		status = *in.Status
	}
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO ticket_history(`+sqliteHistoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.TicketID, formatSQLiteTime(row.Timestamp), row.Action, row.Description, status)
	if err != nil {
		return HistoryRow{}, err
	}
	return row, nil
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, ticketID string) error {
	_, err := s.exec.ExecContext(ctx, `DELETE FROM ticket_history WHERE ticket_id = ?`, ticketID)
	return err
}

// WithinTx runs fn inside a database transaction. Nested calls join the outer transaction.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStore := &SQLiteStore{db: s.db, exec: tx, inTx: true, now: s.now, newID: s.newID}
	if err = fn(txStore); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row sqliteScanner) (TicketRow, error) {
	var t TicketRow
	var createdRaw, updatedRaw string
	err := row.Scan(
		&t.ID,
		&createdRaw,
		&updatedRaw,
		&t.CustomerName,
		&t.ContactNumber,
		&t.ProductCategory,
		&t.ProductModel,
		&t.SerialNumber,
		&t.Problem,
		&t.Status,
	)
	if err != nil {
		return TicketRow{}, err
	}
	t.CreatedAt = parseSQLiteTime(createdRaw)
	t.UpdatedAt = parseSQLiteTime(updatedRaw)
	return t, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(v string) time.Time {
	ts, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
	}
	return ts.UTC()
}
