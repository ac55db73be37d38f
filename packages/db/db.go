// Package db runs the queries of sql steps against SQLite databases.
//
// Connection strings take the form sqlite:path or sqlite://path. Relative
// paths resolve against the suite file's directory and sqlite::memory:
// opens a private in-memory database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName  = "sqlite3"
	memoryDSN   = ":memory:"
	pingTimeout = 5 * time.Second
)

var schemes = []string{"sqlite://", "sqlite:"}

// QueryResult holds every row of a query, keyed by column name.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// Client is one open database handle, scoped to a single sql step.
type Client struct {
	db  *sql.DB
	dsn string
}

// NewClient opens and pings the database named by conn.
func NewClient(ctx context.Context, conn, baseDir string) (*Client, error) {
	dsn, err := parseDSN(conn)
	if err != nil {
		return nil, err
	}
	if dsn != memoryDSN && !filepath.IsAbs(dsn) && baseDir != "" {
		dsn = filepath.Join(baseDir, dsn)
	}

	handle, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("connecting to %s: %w", dsn, err)
	}
	return &Client{db: handle, dsn: dsn}, nil
}

// DSN returns the resolved data source name.
func (c *Client) DSN() string {
	return c.dsn
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Query runs a statement that returns rows.
func (c *Client) Query(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	out := &QueryResult{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement that returns no rows and reports the affected count.
func (c *Client) Exec(ctx context.Context, stmt string) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// scanRow reads the current row. TEXT and BLOB columns come back as strings.
func scanRow(rows *sql.Rows, cols []string) (map[string]any, error) {
	cells := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := cells[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = cells[i]
	}
	return row, nil
}

func parseDSN(conn string) (string, error) {
	conn = strings.TrimSpace(conn)
	for _, prefix := range schemes {
		if dsn, ok := strings.CutPrefix(conn, prefix); ok {
			if dsn == "" {
				return "", fmt.Errorf("missing database path in %q", conn)
			}
			return dsn, nil
		}
	}
	scheme, _, _ := strings.Cut(conn, ":")
	return "", fmt.Errorf("unsupported database scheme: %s", scheme)
}
