package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listCustomers = `
SELECT id, name, phone, chat_id, created_at FROM customers ORDER BY name
`

// ListCustomers returns all customers sorted by name.
func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.ChatID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const getCustomerByID = `
SELECT id, name, phone, chat_id, created_at FROM customers WHERE id = $1
`

// GetCustomerByID fetches a single customer.
func (q *Queries) GetCustomerByID(ctx context.Context, id pgtype.UUID) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, getCustomerByID, id).Scan(&c.ID, &c.Name, &c.Phone, &c.ChatID, &c.CreatedAt)
	return c, err
}

// UpsertCustomerParams groups customer attributes for create/update.
type UpsertCustomerParams struct {
	Name   string
	Phone  pgtype.Text
	ChatID pgtype.Text
}

const createCustomer = `
INSERT INTO customers (name, phone, chat_id) VALUES ($1, $2, $3)
RETURNING id, name, phone, chat_id, created_at
`

// CreateCustomer inserts a customer.
func (q *Queries) CreateCustomer(ctx context.Context, arg UpsertCustomerParams) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Phone, arg.ChatID).
		Scan(&c.ID, &c.Name, &c.Phone, &c.ChatID, &c.CreatedAt)
	return c, err
}

const updateCustomer = `
UPDATE customers SET name = $2, phone = $3, chat_id = $4 WHERE id = $1
RETURNING id, name, phone, chat_id, created_at
`

// UpdateCustomer mutates a customer record.
func (q *Queries) UpdateCustomer(ctx context.Context, id pgtype.UUID, arg UpsertCustomerParams) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, updateCustomer, id, arg.Name, arg.Phone, arg.ChatID).
		Scan(&c.ID, &c.Name, &c.Phone, &c.ChatID, &c.CreatedAt)
	return c, err
}

const deleteCustomer = `
DELETE FROM customers WHERE id = $1
`

// DeleteCustomer removes a customer.
func (q *Queries) DeleteCustomer(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCustomer, id)
	return err
}
