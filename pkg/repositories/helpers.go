package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
)

// nullString turns an empty string into a NULL parameter.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString returns the pointed-to string or "".
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// updateColumns sets the given columns on one row and bumps updated_at.
// Column names must already be validated against the table's editable set;
// they are interpolated into the statement.
func updateColumns(ctx context.Context, table string, id int64, columns map[string]any, allowed map[string]bool) error {
	if len(columns) == 0 {
		return nil
	}

	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		if !allowed[name] {
			return apperrors.Validation("column %q is not editable on %s", name, table)
		}
		names = append(names, name)
	}
	// Stable statement text for the same column set.
	slices.Sort(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	args = append(args, id)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+2))
		args = append(args, columns[name])
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", table, strings.Join(sets, ", "))
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.FromPg(err, "update "+table)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("%s row %d", table, id)
	}
	return nil
}

// deleteByID deletes one row and reports ErrNotFound if nothing matched.
func deleteByID(ctx context.Context, table string, id int64) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return apperrors.FromPg(err, "delete from "+table)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("%s row %d", table, id)
	}
	return nil
}

func columnSet(cols ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range cols {
		for _, c := range list {
			set[c] = true
		}
	}
	return set
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}
