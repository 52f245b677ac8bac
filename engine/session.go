package engine

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Session is one live connection to the engine, exclusively owned by its
// holder while in use. Queries run over the simple query protocol so the
// test text can contain multiple statements and stays completely opaque.
type Session struct {
	conn *pgconn.PgConn
}

// Begin opens a transaction on the session.
func (s *Session) Begin(ctx context.Context) error {
	_, err := s.Query(ctx, "begin")
	return err
}

// Rollback discards the current transaction.
func (s *Session) Rollback(ctx context.Context) error {
	_, err := s.Query(ctx, "rollback")
	return err
}

// Commit commits the current transaction.
func (s *Session) Commit(ctx context.Context) error {
	_, err := s.Query(ctx, "commit")
	return err
}

// Query executes raw query text and returns the first statement's rows as
// strings. NULL values render as empty strings, matching the expected-table
// representation used by the validator.
func (s *Session) Query(ctx context.Context, query string) ([][]string, error) {
	results, err := s.conn.Exec(ctx, query).ReadAll()
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if result.Err != nil {
			return nil, result.Err
		}
	}

	if len(results) == 0 {
		return nil, nil
	}

	rows := make([][]string, len(results[0].Rows))

	for i, rawRow := range results[0].Rows {
		row := make([]string, len(rawRow))
		for j, cell := range rawRow {
			// nil is NULL; it renders exactly like an empty string.
			row[j] = string(cell)
		}

		rows[i] = row
	}

	return rows, nil
}

// Close terminates the connection.
func (s *Session) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
