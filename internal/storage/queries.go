package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Expense struct {
	ID           string
	DepartmentID string
	CategoryID   string
	Description  string
	AmountCents  int64
	Date         string
	Status       string
	CreatedBy    string
	Version      int64
}

type IndirectCost struct {
	ID          string
	CategoryID  string
	Description string
	AmountCents int64
	Date        string
	Policy      string
	Version     int64
}

const expenseColumns = `id, department_id, category_id, description, amount_cents, date, status, created_by, version`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.DepartmentID, &e.CategoryID, &e.Description, &e.AmountCents, &e.Date, &e.Status, &e.CreatedBy, &e.Version)
	return e, err
}

const createExpense = `INSERT INTO expenses (id, department_id, category_id, description, amount_cents, date, status, created_by, version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	ID           string
	DepartmentID string
	CategoryID   string
	Description  string
	AmountCents  int64
	Date         string
	Status       string
	CreatedBy    string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID, arg.DepartmentID, arg.CategoryID, arg.Description, arg.AmountCents, arg.Date, arg.Status, arg.CreatedBy)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY rowid`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const updateExpense = `UPDATE expenses
SET department_id = ?, category_id = ?, description = ?, amount_cents = ?, date = ?, status = ?, created_by = ?,
    version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	DepartmentID string
	CategoryID   string
	Description  string
	AmountCents  int64
	Date         string
	Status       string
	CreatedBy    string
	ID           string
	Version      int64
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.DepartmentID, arg.CategoryID, arg.Description, arg.AmountCents, arg.Date, arg.Status, arg.CreatedBy,
		arg.ID, arg.Version)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const indirectColumns = `id, category_id, description, amount_cents, date, policy, version`

func scanIndirectCost(row interface{ Scan(...any) error }) (IndirectCost, error) {
	var c IndirectCost
	err := row.Scan(&c.ID, &c.CategoryID, &c.Description, &c.AmountCents, &c.Date, &c.Policy, &c.Version)
	return c, err
}

const createIndirectCost = `INSERT INTO indirect_costs (id, category_id, description, amount_cents, date, policy, version)
VALUES (?, ?, ?, ?, ?, ?, 1)
RETURNING ` + indirectColumns

type CreateIndirectCostParams struct {
	ID          string
	CategoryID  string
	Description string
	AmountCents int64
	Date        string
	Policy      string
}

func (q *Queries) CreateIndirectCost(ctx context.Context, arg CreateIndirectCostParams) (IndirectCost, error) {
	row := q.db.QueryRowContext(ctx, createIndirectCost,
		arg.ID, arg.CategoryID, arg.Description, arg.AmountCents, arg.Date, arg.Policy)
	return scanIndirectCost(row)
}

const getIndirectCost = `SELECT ` + indirectColumns + ` FROM indirect_costs WHERE id = ?`

func (q *Queries) GetIndirectCost(ctx context.Context, id string) (IndirectCost, error) {
	return scanIndirectCost(q.db.QueryRowContext(ctx, getIndirectCost, id))
}

const listIndirectCosts = `SELECT ` + indirectColumns + ` FROM indirect_costs ORDER BY rowid`

func (q *Queries) ListIndirectCosts(ctx context.Context) ([]IndirectCost, error) {
	rows, err := q.db.QueryContext(ctx, listIndirectCosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IndirectCost
	for rows.Next() {
		c, err := scanIndirectCost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateIndirectCost = `UPDATE indirect_costs
SET category_id = ?, description = ?, amount_cents = ?, date = ?, policy = ?,
    version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?
RETURNING ` + indirectColumns

type UpdateIndirectCostParams struct {
	CategoryID  string
	Description string
	AmountCents int64
	Date        string
	Policy      string
	ID          string
	Version     int64
}

func (q *Queries) UpdateIndirectCost(ctx context.Context, arg UpdateIndirectCostParams) (IndirectCost, error) {
	row := q.db.QueryRowContext(ctx, updateIndirectCost,
		arg.CategoryID, arg.Description, arg.AmountCents, arg.Date, arg.Policy, arg.ID, arg.Version)
	return scanIndirectCost(row)
}

const deleteIndirectCost = `DELETE FROM indirect_costs WHERE id = ?`

func (q *Queries) DeleteIndirectCost(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteIndirectCost, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
