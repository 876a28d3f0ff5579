// Package pgrepos implements the domain repositories on PostgreSQL with sqlx.
package pgrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// uniqueViolation is the postgres error code of unique constraint violations.
const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// where builds a WHERE clause out of the conditions, ANDed.
type where struct {
	conds []string
	args  map[string]interface{}
}

func newWhere() *where {
	return &where{args: make(map[string]interface{})}
}

func (w *where) add(cond, name string, val interface{}) {
	w.conds = append(w.conds, cond)
	w.args[name] = val
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// selectNamed runs a named query with w's args then scans the rows into dest.
func selectNamed(ctx context.Context, db sqlx.ExtContext, dest interface{}, query string, w *where) error {
	q, args, err := sqlx.Named(query, w.args)
	if err != nil {
		return err
	}
	q, args, err = sqlx.In(q, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, db, dest, db.Rebind(q), args...)
}

func orderBy(orderings []core.DBOrdering, dflt string) string {
	if len(orderings) == 0 {
		return " ORDER BY " + dflt
	}
	list := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}
