package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so the same store code runs
// standalone or inside a sync batch.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// now is the source of server-assigned timestamps.
var now = func() time.Time {
	return time.Now().UTC()
}

// Page selects a window of a list result.
type Page struct {
	Number int
	Size   int
}

// Normalize applies the default and maximum page size.
func (p Page) Normalize() Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	switch {
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	case p.Size <= 0:
		p.Size = DefaultPageSize
	}
	return p
}

// conditions accumulates a WHERE clause with positional arguments. Each "?"
// in a clause is bound to the argument added with it.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, arg interface{}) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(c.args))))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// paginate returns the LIMIT/OFFSET suffix and the full argument list.
func (c *conditions) paginate(p Page) (string, []interface{}) {
	p = p.Normalize()
	n := len(c.args)
	args := append(append([]interface{}(nil), c.args...), p.Size, (p.Number-1)*p.Size)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}
