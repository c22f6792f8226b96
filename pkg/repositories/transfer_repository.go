package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// ColumnType drives value coercion when restoring rows from JSON.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInt
	ColumnTime
)

// TransferColumn is one exported column.
type TransferColumn struct {
	Name string
	Type ColumnType
}

// TransferTable describes how one table is dumped and restored.
type TransferTable struct {
	Name    string
	Columns []TransferColumn
	// HasID is false for join tables without a surrogate key.
	HasID bool
}

func textColumns(names []string) []TransferColumn {
	cols := make([]TransferColumn, len(names))
	for i, n := range names {
		cols[i] = TransferColumn{Name: n, Type: ColumnText}
	}
	return cols
}

func withTimestamps(cols ...[]TransferColumn) []TransferColumn {
	var out []TransferColumn
	for _, c := range cols {
		out = append(out, c...)
	}
	return append(out, TransferColumn{"created_at", ColumnTime}, TransferColumn{"updated_at", ColumnTime})
}

func linkTable(kind models.LinkKind) TransferTable {
	info, _ := kind.Info()
	return TransferTable{
		Name:  info.Table,
		HasID: true,
		Columns: withTimestamps([]TransferColumn{
			{"id", ColumnInt},
			{info.SourceColumn, ColumnInt},
			{info.TargetColumn, ColumnInt},
			{"relevance_score", ColumnInt},
			{"relevance_content", ColumnText},
		}),
	}
}

var transferTables = func() map[string]TransferTable {
	tables := map[string]TransferTable{
		models.TableUsers: {
			Name:  models.TableUsers,
			HasID: true,
			Columns: []TransferColumn{
				{"id", ColumnInt}, {"username", ColumnText}, {"password_hash", ColumnText}, {"created_at", ColumnTime},
			},
		},
		models.TableAreas: {
			Name:    models.TableAreas,
			HasID:   true,
			Columns: withTimestamps([]TransferColumn{{"id", ColumnInt}, {"name", ColumnText}, {"description", ColumnText}}),
		},
		models.TableSteps: {
			Name:  models.TableSteps,
			HasID: true,
			Columns: withTimestamps(
				[]TransferColumn{{"id", ColumnInt}, {"bi_id", ColumnText}, {"name", ColumnText}, {"area_id", ColumnInt}},
				textColumns(models.ProcessStepTextColumns),
			),
		},
		models.TableUseCases: {
			Name:  models.TableUseCases,
			HasID: true,
			Columns: withTimestamps(
				[]TransferColumn{
					{"id", ColumnInt}, {"bi_id", ColumnText}, {"name", ColumnText},
					{"process_step_id", ColumnInt}, {"priority", ColumnInt},
				},
				textColumns(models.UseCaseTextColumns),
			),
		},
		models.TableTags: {
			Name:    models.TableTags,
			HasID:   true,
			Columns: []TransferColumn{{"id", ColumnInt}, {"name", ColumnText}, {"category", ColumnText}},
		},
		models.TableUseCaseTags: {
			Name:    models.TableUseCaseTags,
			Columns: []TransferColumn{{"use_case_id", ColumnInt}, {"tag_id", ColumnInt}},
		},
		// Provider secrets are never exported.
		models.TableLLMSettings: {
			Name:  models.TableLLMSettings,
			HasID: true,
			Columns: withTimestamps([]TransferColumn{
				{"id", ColumnInt}, {"user_id", ColumnInt}, {"default_provider", ColumnText},
				{"default_model", ColumnText}, {"ollama_base_url", ColumnText}, {"apollo_client_id", ColumnText},
			}),
		},
	}
	for _, kind := range models.LinkKinds {
		t := linkTable(kind)
		tables[t.Name] = t
	}
	return tables
}()

// LookupTransferTable returns the descriptor of an exported table.
func LookupTransferTable(name string) (TransferTable, bool) {
	t, ok := transferTables[name]
	return t, ok
}

// TransferRepository dumps and restores whole tables for backup documents.
type TransferRepository interface {
	// DumpTable returns every row of the table as column → value, ordered by key.
	DumpTable(ctx context.Context, table string) ([]map[string]any, error)
	// TruncateAll empties every exported table and resets identities.
	TruncateAll(ctx context.Context) error
	// InsertRow inserts one row, ignoring any id column, and returns the new id (0 for join tables).
	InsertRow(ctx context.Context, table string, row map[string]any) (int64, error)
}

type transferRepository struct{}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository() TransferRepository {
	return &transferRepository{}
}

var _ TransferRepository = (*transferRepository)(nil)

func (r *transferRepository) DumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	t, ok := transferTables[table]
	if !ok {
		return nil, apperrors.Validation("unknown table %q", table)
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	order := "id"
	if !t.HasID {
		order = strings.Join(names, ", ")
	}

	rows, err := q.Query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(names, ", "), t.Name, order))
	if err != nil {
		return nil, fmt.Errorf("failed to dump %s: %w", table, err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row: %w", table, err)
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			if ts, ok := values[i].(time.Time); ok {
				row[name] = ts.UTC().Format(time.RFC3339Nano)
				continue
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return out, nil
}

func (r *transferRepository) TruncateAll(ctx context.Context) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, "TRUNCATE "+strings.Join(models.ExportTables, ", ")+" RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

func (r *transferRepository) InsertRow(ctx context.Context, table string, row map[string]any) (int64, error) {
	t, ok := transferTables[table]
	if !ok {
		return 0, apperrors.Validation("unknown table %q", table)
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return 0, err
	}

	var (
		cols []string
		args []any
	)
	for _, c := range t.Columns {
		if c.Name == "id" {
			continue
		}
		raw, present := row[c.Name]
		if !present {
			continue
		}
		v, err := coerce(raw, c.Type)
		if err != nil {
			return 0, apperrors.Validation("%s.%s: %v", table, c.Name, err)
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}
	if len(cols) == 0 {
		return 0, apperrors.Validation("%s row has no known columns", table)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, strings.Join(cols, ", "), placeholders(len(cols)))
	if !t.HasID {
		if _, err := q.Exec(ctx, query+" ON CONFLICT DO NOTHING", args...); err != nil {
			return 0, apperrors.FromPg(err, "restore "+table)
		}
		return 0, nil
	}

	var id int64
	if err := q.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, apperrors.FromPg(err, "restore "+table)
	}
	return id, nil
}

// coerce converts a decoded JSON value into the Go type pgx expects for the column.
func coerce(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case ColumnInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		case json.Number:
			return n.Int64()
		case string:
			return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		}
		return nil, fmt.Errorf("unexpected %T for integer column", v)
	case ColumnTime:
		switch ts := v.(type) {
		case time.Time:
			return ts, nil
		case string:
			if ts == "" {
				return nil, nil
			}
			if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				return parsed, nil
			}
			// Exports from older builds used naive ISO timestamps.
			return time.Parse("2006-01-02T15:04:05.999999", ts)
		}
		return nil, fmt.Errorf("unexpected %T for timestamp column", v)
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case float64, int64, bool, json.Number:
			return fmt.Sprint(s), nil
		}
		return nil, fmt.Errorf("unexpected %T for text column", v)
	}
}
