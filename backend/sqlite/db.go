// Package sqlite executes bound statements against SQLite through sqlx and
// go-sqlite3. It translates every field's (type, pointer, size) triple into a
// driver value on the way in and back into the field on the way out.
package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
)

const driverName = "sqlite3"

// Open connects to the SQLite database at dsn and runs schema, if any, in a
// single transaction.
func Open(ctx context.Context, dsn string, schema string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", dsn)
	}
	if schema == "" {
		return db, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to begin schema transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to commit schema")
	}
	return db, nil
}
