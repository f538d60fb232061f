// Package contracts manages admin-entered contract discount overrides, the
// top tier of the pricing engine's discount resolution.
package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested contract could not be located.
var ErrNotFound = errors.New("contracts: not found")

// ErrDuplicate indicates a contract already exists for the supplier/category pair.
var ErrDuplicate = errors.New("contracts: duplicate supplier/category")

// Contract is one negotiated (supplier, category) → percentage override.
type Contract struct {
	ID         uuid.UUID `json:"id"`
	Supplier   string    `json:"supplier"`
	Category   string    `json:"category"`
	Percentage float64   `json:"percentage"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists contracts in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const contractColumns = `id, supplier, category, percentage, active, created_at, updated_at`

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.Supplier, &c.Category, &c.Percentage, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a new contract.
func (s *Store) Create(ctx context.Context, supplier, category string, percentage float64, active bool) (Contract, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO contract_discounts (supplier, category, percentage, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contractColumns,
		supplier, category, percentage, active)
	c, err := scanContract(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Contract{}, ErrDuplicate
		}
		return Contract{}, err
	}
	return c, nil
}

// Update changes percentage and active state for an existing contract.
func (s *Store) Update(ctx context.Context, id uuid.UUID, percentage float64, active bool) (Contract, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE contract_discounts
		SET percentage = $2, active = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+contractColumns,
		id, percentage, active)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

// Delete removes a contract.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (Contract, error) {
	row := s.Pool.QueryRow(ctx, `
		DELETE FROM contract_discounts WHERE id = $1
		RETURNING `+contractColumns, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

// List returns contracts, optionally filtered by supplier, newest first.
func (s *Store) List(ctx context.Context, supplier string, limit, offset int) ([]Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contract_discounts`
	args := []any{}
	if supplier != "" {
		query += ` WHERE lower(supplier) = lower($1)`
		args = append(args, supplier)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		switch len(args) {
		case 2:
			query += ` LIMIT $1 OFFSET $2`
		case 3:
			query += ` LIMIT $2 OFFSET $3`
		}
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveDiscounts returns the active category → percentage map for a
// supplier. This is the persistent tier behind pricing.DiscountSource.
func (s *Store) ActiveDiscounts(ctx context.Context, supplier string) (map[string]float64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT category, percentage FROM contract_discounts
		WHERE lower(supplier) = lower($1) AND active`, supplier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	discounts := make(map[string]float64)
	for rows.Next() {
		var category string
		var pct float64
		if err := rows.Scan(&category, &pct); err != nil {
			return nil, err
		}
		discounts[category] = pct
	}
	return discounts, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
