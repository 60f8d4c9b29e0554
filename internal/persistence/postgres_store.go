package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of pgx.
type PostgresStore struct {
	db pgQuerier
}

// NewPostgresStore wraps a pool (or any pgx querier).
func NewPostgresStore(db pgQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

const ticketColumns = `id::text, created_at, updated_at, customer_name, contact_number, product_category,
               product_model, serial_number, problem, status`

const historyColumns = `id::text, ticket_id::text, "timestamp", action, description, status`

func (s *PostgresStore) SelectTickets(ctx context.Context, query TicketQuery) ([]TicketRow, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if query.Status != "" {
		args = append(args, query.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if query.Search != "" {
		args = append(args, containsPattern(query.Search))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(customer_name ILIKE %[1]s OR product_model ILIKE %[1]s OR serial_number ILIKE %[1]s OR id::text ILIKE %[1]s)",
			placeholder))
	}

	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketRows(rows)
}

func (s *PostgresStore) SelectTicket(ctx context.Context, id string) (TicketRow, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id::text=$1`
	row, err := scanTicketRow(s.db.QueryRow(ctx, query, id))
	return row, translatePgError(err)
}

func (s *PostgresStore) InsertTicket(ctx context.Context, in TicketInsert) (TicketRow, error) {
	const query = `
        INSERT INTO tickets (customer_name, contact_number, product_category, product_model, serial_number, problem, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING ` + ticketColumns
	return scanTicketRow(s.db.QueryRow(ctx, query,
		in.CustomerName,
		in.ContactNumber,
		in.ProductCategory,
		in.ProductModel,
		in.SerialNumber,
		in.Problem,
		in.Status,
	))
}

func (s *PostgresStore) UpdateTicketStatus(ctx context.Context, id, status string) (TicketRow, error) {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id::text=$2
        RETURNING ` + ticketColumns
	row, err := scanTicketRow(s.db.QueryRow(ctx, query, status, id))
	return row, translatePgError(err)
}

func (s *PostgresStore) DeleteTicket(ctx context.Context, id string) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM tickets WHERE id::text=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SelectHistory(ctx context.Context, ticketIDs []string) ([]HistoryRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ticketIDs == nil {
		rows, err = s.db.Query(ctx, `SELECT `+historyColumns+` FROM ticket_history ORDER BY "timestamp" DESC, id DESC`)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+historyColumns+` FROM ticket_history WHERE ticket_id::text = ANY($1) ORDER BY "timestamp" DESC, id DESC`,
			ticketIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(
			&row.ID,
			&row.TicketID,
			&row.Timestamp,
			&row.Action,
			&row.Description,
			&row.Status,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *PostgresStore) InsertHistory(ctx context.Context, in HistoryInsert) (HistoryRow, error) {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, description, status)
        VALUES ($1::uuid,$2,$3,$4)
        RETURNING ` + historyColumns
	var row HistoryRow
	err := s.db.QueryRow(ctx, query, in.TicketID, in.Action, in.Description, in.Status).Scan(
		&row.ID,
		&row.TicketID,
		&row.Timestamp,
		&row.Action,
		&row.Description,
		&row.Status,
	)
	return row, err
}

func (s *PostgresStore) DeleteHistory(ctx context.Context, ticketID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM ticket_history WHERE ticket_id::text=$1`, ticketID)
	return err
}

// WithinTx runs fn inside a transaction (a savepoint when already inside one).
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: tx})
	})
}

func scanTicketRow(row pgx.Row) (TicketRow, error) {
	var t TicketRow
	err := row.Scan(
		&t.ID,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CustomerName,
		&t.ContactNumber,
		&t.ProductCategory,
		&t.ProductModel,
		&t.SerialNumber,
		&t.Problem,
		&t.Status,
	)
	return t, err
}

func scanTicketRows(rows pgx.Rows) ([]TicketRow, error) {
	var result []TicketRow
	for rows.Next() {
		t, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func translatePgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
