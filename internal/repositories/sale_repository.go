package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

type SaleRepository struct {
	DB *pgxpool.Pool
}

func NewSaleRepository(db *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{DB: db}
}

func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO sale(account_id, sale_date, status)
         VALUES($1, $2, $3)
         RETURNING id, created_at, updated_at`,
		sale.AccountID, sale.Date, sale.Status,
	).Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO sale_item(sale_id, customer_id, product_id, quantity, buy_price_at_sale, sell_price_at_sale)
             VALUES($1, $2, $3, $4, $5, $6)
             RETURNING id`,
			item.SaleID, item.CustomerID, item.ProductID, item.Quantity,
			item.BuyPriceAtSale, item.SellPriceAtSale,
		).Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *SaleRepository) Get(ctx context.Context, id, accountID int) (*models.Sale, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, account_id, sale_date, status, created_at, updated_at
         FROM sale WHERE id=$1 AND account_id=$2`, id, accountID)

	var sale models.Sale
	err := row.Scan(&sale.ID, &sale.AccountID, &sale.Date, &sale.Status, &sale.CreatedAt, &sale.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sale.Items, err = r.itemsForSales(ctx, []int{sale.ID})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *SaleRepository) List(ctx context.Context, accountID int) ([]models.Sale, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, sale_date, status, created_at, updated_at
         FROM sale WHERE account_id=$1 ORDER BY sale_date DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []models.Sale
	var ids []int
	for rows.Next() {
		var sale models.Sale
		err := rows.Scan(&sale.ID, &sale.AccountID, &sale.Date, &sale.Status, &sale.CreatedAt, &sale.UpdatedAt)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	items, err := r.itemsForSales(ctx, ids)
	if err != nil {
		return nil, err
	}
	bySale := make(map[int][]models.SaleItem)
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
	}
	return sales, nil
}

func (r *SaleRepository) ReplaceItems(ctx context.Context, sale *models.Sale) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE sale SET sale_date=$1, updated_at=now() WHERE id=$2`,
		sale.Date, sale.ID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM sale_item WHERE sale_id=$1`, sale.ID)
	if err != nil {
		return err
	}
	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO sale_item(sale_id, customer_id, product_id, quantity, buy_price_at_sale, sell_price_at_sale)
             VALUES($1, $2, $3, $4, $5, $6)
             RETURNING id`,
			item.SaleID, item.CustomerID, item.ProductID, item.Quantity,
			item.BuyPriceAtSale, item.SellPriceAtSale,
		).Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *SaleRepository) Patch(ctx context.Context, id int, status *models.SaleStatus, date *time.Time) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE sale
         SET status = COALESCE($2, status),
             sale_date = COALESCE($3, sale_date),
             updated_at = now()
         WHERE id=$1`,
		id, (*string)(status), date)
	return err
}

func (r *SaleRepository) Delete(ctx context.Context, id, accountID int) error {
	// Items and delivery steps go with it via ON DELETE CASCADE.
	_, err := r.DB.Exec(ctx, `DELETE FROM sale WHERE id=$1 AND account_id=$2`, id, accountID)
	return err
}

// ReplaceCustomerOrder swaps one customer's items inside a transaction that
// locks the sale row and re-checks it is still draft, so a concurrent close
// cannot let a late order slip in.
func (r *SaleRepository) ReplaceCustomerOrder(ctx context.Context, saleID, customerID int, items []models.SaleItem) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM sale WHERE id=$1 FOR UPDATE`, saleID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if status != string(models.SaleStatusDraft) {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM sale_item WHERE sale_id=$1 AND customer_id=$2`, saleID, customerID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		_, err = tx.Exec(ctx,
			`INSERT INTO sale_item(sale_id, customer_id, product_id, quantity, buy_price_at_sale, sell_price_at_sale)
             VALUES($1, $2, $3, $4, $5, $6)`,
			saleID, customerID, item.ProductID, item.Quantity,
			item.BuyPriceAtSale, item.SellPriceAtSale)
		if err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SaleRepository) itemsForSales(ctx context.Context, saleIDs []int) ([]models.SaleItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT i.id, i.sale_id, i.customer_id, i.product_id, i.quantity,
                i.buy_price_at_sale, i.sell_price_at_sale, p.name, c.name
         FROM sale_item i
         JOIN product p ON p.id = i.product_id
         JOIN customer c ON c.id = i.customer_id
         WHERE i.sale_id = ANY($1)
         ORDER BY c.name, p.name, i.id`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.SaleItem
	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(&item.ID, &item.SaleID, &item.CustomerID, &item.ProductID, &item.Quantity,
			&item.BuyPriceAtSale, &item.SellPriceAtSale, &item.ProductName, &item.CustomerName)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
