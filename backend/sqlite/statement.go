package sqlite

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/tomyedwab/asyncsql/data"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

// Statement is a prepared SQLite statement bound to the worker pool of a
// Connection. It is safe to execute from several workers at once.
type Statement struct {
	id    uuid.UUID
	query string
	stmt  *sqlx.Stmt
	conn  *sqlqueue.Connection
}

var _ sqlqueue.Statement = (*Statement)(nil)

// Prepare compiles query on db. Enqueued executions run on conn's workers.
func Prepare(ctx context.Context, db *sqlx.DB, conn *sqlqueue.Connection, query string) (*Statement, error) {
	if conn == nil {
		return nil, errors.New("statement needs a connection")
	}
	stmt, err := db.PreparexContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(translateError(err), "prepare failed")
	}
	return &Statement{
		id:    uuid.New(),
		query: query,
		stmt:  stmt,
		conn:  conn,
	}, nil
}

// ID returns the identifier assigned at preparation.
func (s *Statement) ID() uuid.UUID { return s.id }

// Query returns the SQL text the statement was prepared from.
func (s *Statement) Query() string { return s.query }

// Close releases the prepared statement. Work already queued for it fails.
func (s *Statement) Close() error {
	return s.stmt.Close()
}

// Enqueue queues the statement on its connection and returns immediately.
func (s *Statement) Enqueue(params data.Set, results data.Container, insertID, rows *uint64, cb sqlqueue.Callback) {
	s.conn.Queue(&sqlqueue.Query{
		Statement:  s,
		Parameters: params,
		Results:    results,
		InsertID:   insertID,
		Rows:       rows,
		Callback:   cb,
	})
}

// Execute runs the statement on the calling goroutine. Without a result
// container it executes for effect and reports the last insert id and the
// number of affected rows. With one it appends an element per fetched row and
// reports the number of rows fetched.
func (s *Statement) Execute(ctx context.Context, params data.Set, results data.Container, insertID, rows *uint64) error {
	args, err := bindArgs(params)
	if err != nil {
		return err
	}
	if results == nil {
		return s.exec(ctx, args, insertID, rows)
	}
	return s.fetch(ctx, args, results, rows)
}

func bindArgs(params data.Set) ([]any, error) {
	if params == nil {
		return nil, nil
	}
	if err := data.Check(params); err != nil {
		return nil, err
	}
	args := make([]any, params.NumFields())
	for i := range args {
		v, err := convertParam(params.FieldType(i), params.Field(i))
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i)
		}
		args[i] = v
	}
	return args, nil
}

func (s *Statement) exec(ctx context.Context, args []any, insertID, rows *uint64) error {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return translateError(err)
	}
	if insertID != nil {
		id, err := res.LastInsertId()
		if err != nil {
			return translateError(err)
		}
		*insertID = uint64(id)
	}
	if rows != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return translateError(err)
		}
		*rows = uint64(n)
	}
	return nil
}

func (s *Statement) fetch(ctx context.Context, args []any, results data.Container, rows *uint64) error {
	rs, err := s.stmt.QueryxContext(ctx, args...)
	if err != nil {
		return translateError(err)
	}
	defer rs.Close()

	var fetched uint64
	for rs.Next() {
		vals, err := rs.SliceScan()
		if err != nil {
			return translateError(err)
		}
		// The element is appended before it is known to be valid and is
		// trimmed again if the row cannot be stored in it.
		set := results.Manufacture()
		if err := storeRow(set, vals); err != nil {
			results.Trim()
			return err
		}
		fetched++
	}
	if err := rs.Err(); err != nil {
		return translateError(err)
	}
	if rows != nil {
		*rows = fetched
	}
	return nil
}

func storeRow(set data.Set, vals []any) error {
	if err := data.Check(set); err != nil {
		return err
	}
	if set.NumFields() != len(vals) {
		return sqlqueue.NewExecutionError("",
			fmt.Sprintf("query returned %d columns but the result record binds %d", len(vals), set.NumFields()))
	}
	for i, v := range vals {
		if err := convertResult(set.FieldType(i), set.FieldSize(i), set.Field(i), v); err != nil {
			return sqlqueue.NewExecutionError("", fmt.Sprintf("column %d: %v", i, err))
		}
	}
	return nil
}

// translateError turns a driver error into an ExecutionError carrying the
// SQLite extended result code.
func translateError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return sqlqueue.WrapExecutionError(err, strconv.Itoa(int(serr.ExtendedCode)))
	}
	return sqlqueue.WrapExecutionError(err, "")
}
