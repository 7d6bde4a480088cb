package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

type ProductRepository struct {
	DB *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{DB: db}
}

func (r *ProductRepository) Get(ctx context.Context, id, accountID int) (*models.Product, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, account_id, name, description, buy_price, sell_price, created_at, updated_at
         FROM product WHERE id=$1 AND account_id=$2`, id, accountID)

	var p models.Product
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.BuyPrice, &p.SellPrice, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, accountID int) ([]models.Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, name, description, buy_price, sell_price, created_at, updated_at
         FROM product WHERE account_id=$1 ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.BuyPrice, &p.SellPrice, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
