package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func (r *CustomerRepository) Get(ctx context.Context, id, accountID int) (*models.Customer, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, account_id, name, address, phone, credit, created_at, updated_at
         FROM customer WHERE id=$1 AND account_id=$2`, id, accountID)

	customer, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, accountID int) ([]models.Customer, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, name, address, phone, credit, created_at, updated_at
         FROM customer WHERE account_id=$1 ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func (r *CustomerRepository) ByIDs(ctx context.Context, ids []int) ([]models.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, name, address, phone, credit, created_at, updated_at
         FROM customer WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCustomers(rows)
}

// CustomerByToken resolves a portal access token and stamps its last use.
func (r *CustomerRepository) CustomerByToken(ctx context.Context, token string) (*models.Customer, error) {
	row := r.DB.QueryRow(ctx,
		`UPDATE customer_access_token t
         SET last_accessed_at = now()
         FROM customer c
         WHERE t.access_token=$1 AND c.id = t.customer_id
         RETURNING c.id, c.account_id, c.name, c.address, c.phone, c.credit, c.created_at, c.updated_at`,
		token)

	customer, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.Address, &c.Phone, &c.Credit, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCustomers(rows pgx.Rows) ([]models.Customer, error) {
	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
