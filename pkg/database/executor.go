package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryResult holds the output of a report query: ordered column names and
// rows as column-name to value maps.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// Executor runs fully rendered report SQL against the warehouse and shapes
// results for the API.
type Executor interface {
	Query(ctx context.Context, sqlQuery string) (*QueryResult, error)
}

type executor struct {
	pool *pgxpool.Pool
}

// NewExecutor creates an Executor backed by the given pool.
func NewExecutor(pool *pgxpool.Pool) Executor {
	return &executor{pool: pool}
}

func (e *executor) Query(ctx context.Context, sqlQuery string) (*QueryResult, error) {
	rows, err := e.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &QueryResult{
		Columns: columns,
		Rows:    resultRows,
		Count:   len(resultRows),
	}, nil
}
