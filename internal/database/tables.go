package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, name, capacity, status, is_active, created_at, updated_at`

const listActiveTables = `
SELECT ` + tableColumns + `
FROM tables
WHERE is_active = true
ORDER BY name
`

func (q *Queries) ListActiveTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listActiveTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTables(rows)
}

const getTable = `
SELECT ` + tableColumns + `
FROM tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTable, id).
		Scan(&t.ID, &t.Name, &t.Capacity, &t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

const updateTableStatus = `
UPDATE tables
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns + `
`

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, updateTableStatus, arg.ID, arg.Status).
		Scan(&t.ID, &t.Name, &t.Capacity, &t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanTables(rows pgx.Rows) ([]Table, error) {
	var result []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
