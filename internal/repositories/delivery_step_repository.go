package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// reorderOffset keeps the two-phase sequence rewrite clear of the target
// range; added on top of the current max sequence.
const reorderOffset = 1000

// DeliveryStepRepository runs the queue's guarded writes. Every mutating
// method is one transaction; preconditions are expressed in the WHERE
// clauses so concurrent attempts race on rows affected, never on reads.
type DeliveryStepRepository struct {
	DB *pgxpool.Pool
}

func NewDeliveryStepRepository(db *pgxpool.Pool) *DeliveryStepRepository {
	return &DeliveryStepRepository{DB: db}
}

const stepColumns = `d.id, d.sale_id, d.customer_id, d.sequence_order, d.status, d.is_next,
                d.completed_at, d.amount_collected, d.credit_applied, d.skip_reason, c.name`

func (r *DeliveryStepRepository) StepsBySale(ctx context.Context, saleID int) ([]models.DeliveryStep, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+stepColumns+`
         FROM delivery_step d
         JOIN customer c ON c.id = d.customer_id
         WHERE d.sale_id=$1
         ORDER BY d.sequence_order`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []models.DeliveryStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

func (r *DeliveryStepRepository) StepByCustomer(ctx context.Context, saleID, customerID int) (*models.DeliveryStep, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+stepColumns+`
         FROM delivery_step d
         JOIN customer c ON c.id = d.customer_id
         WHERE d.sale_id=$1 AND d.customer_id=$2`, saleID, customerID)

	step, err := scanStep(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return step, nil
}

func (r *DeliveryStepRepository) CreateSteps(ctx context.Context, steps []models.DeliveryStep) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range steps {
		step := &steps[i]
		err = tx.QueryRow(ctx,
			`INSERT INTO delivery_step(sale_id, customer_id, sequence_order, status, is_next)
             VALUES($1, $2, $3, $4, $5)
             RETURNING id`,
			step.SaleID, step.CustomerID, step.SequenceOrder, step.Status, step.IsNext,
		).Scan(&step.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *DeliveryStepRepository) Start(ctx context.Context, saleID int, newSteps []models.DeliveryStep, nextCustomerID int) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sale SET status='in_progress', updated_at=now()
         WHERE id=$1 AND status='closed'`, saleID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for i := range newSteps {
		step := &newSteps[i]
		err = tx.QueryRow(ctx,
			`INSERT INTO delivery_step(sale_id, customer_id, sequence_order, status)
             VALUES($1, $2, $3, 'pending')
             RETURNING id`,
			saleID, step.CustomerID, step.SequenceOrder,
		).Scan(&step.ID)
		if err != nil {
			return false, err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE delivery_step
         SET is_next = (customer_id = $2 AND status = 'pending')
         WHERE sale_id=$1`, saleID, nextCustomerID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reorder rewrites sequences in two phases inside one transaction: shift
// every step past the current maximum first, then land each target on its
// requested position. A direct in-place permutation would trip the per-sale
// sequence uniqueness constraint mid-rewrite.
func (r *DeliveryStepRepository) Reorder(ctx context.Context, saleID int, targets []models.RouteTarget) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_order), 0) FROM delivery_step WHERE sale_id=$1`, saleID).Scan(&maxSeq)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE delivery_step SET sequence_order = sequence_order + $2 WHERE sale_id=$1`,
		saleID, maxSeq+reorderOffset)
	if err != nil {
		return err
	}

	for _, t := range targets {
		tag, err := tx.Exec(ctx,
			`UPDATE delivery_step SET sequence_order=$3 WHERE sale_id=$1 AND customer_id=$2`,
			saleID, t.CustomerID, t.Sequence)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no delivery step for customer %d in sale %d", t.CustomerID, saleID)
		}
	}
	return tx.Commit(ctx)
}

func (r *DeliveryStepRepository) SetNext(ctx context.Context, saleID, customerID int) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE delivery_step SET is_next=FALSE WHERE sale_id=$1 AND is_next`, saleID)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE delivery_step SET is_next=TRUE
         WHERE sale_id=$1 AND customer_id=$2 AND status='pending'`, saleID, customerID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *DeliveryStepRepository) Complete(ctx context.Context, saleID, customerID int, amountCollected, creditApplied decimal.Decimal) (decimal.Decimal, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE delivery_step
         SET status='completed', is_next=FALSE, completed_at=now(),
             amount_collected=$3, credit_applied=$4, skip_reason=NULL
         WHERE sale_id=$1 AND customer_id=$2 AND status='pending'`,
		saleID, customerID, amountCollected, creditApplied)
	if err != nil {
		return decimal.Zero, false, err
	}
	if tag.RowsAffected() == 0 {
		return decimal.Zero, false, nil
	}

	var newCredit decimal.Decimal
	if creditApplied.IsPositive() {
		err = tx.QueryRow(ctx,
			`UPDATE customer SET credit = credit - $2, updated_at=now()
             WHERE id=$1 AND credit >= $2
             RETURNING credit`, customerID, creditApplied).Scan(&newCredit)
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, fmt.Errorf("credit of customer %d changed concurrently", customerID)
		}
		if err != nil {
			return decimal.Zero, false, err
		}
	} else {
		if err := tx.QueryRow(ctx,
			`SELECT credit FROM customer WHERE id=$1`, customerID).Scan(&newCredit); err != nil {
			return decimal.Zero, false, err
		}
	}

	if err := r.autoCompleteSale(ctx, tx, saleID); err != nil {
		return decimal.Zero, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, false, err
	}
	return newCredit, true, nil
}

func (r *DeliveryStepRepository) Skip(ctx context.Context, saleID, customerID int, reason string) (bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE delivery_step
         SET status='skipped', is_next=FALSE, skip_reason=$3,
             completed_at=NULL, amount_collected=NULL, credit_applied=NULL
         WHERE sale_id=$1 AND customer_id=$2 AND status='pending'`,
		saleID, customerID, reason)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := r.autoCompleteSale(ctx, tx, saleID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reset moves a resolved step back to pending. The credit restored is the
// amount recorded on the step at completion time, read and cleared in the
// same statement, never recomputed from the current balance.
func (r *DeliveryStepRepository) Reset(ctx context.Context, saleID, customerID int) (decimal.Decimal, bool, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	defer tx.Rollback(ctx)

	var oldStatus string
	var oldCredit decimal.NullDecimal
	err = tx.QueryRow(ctx,
		`WITH prev AS (
             SELECT id, status, credit_applied FROM delivery_step
             WHERE sale_id=$1 AND customer_id=$2 AND status <> 'pending'
             FOR UPDATE
         )
         UPDATE delivery_step d
         SET status='pending', is_next=FALSE, completed_at=NULL,
             amount_collected=NULL, credit_applied=NULL, skip_reason=NULL
         FROM prev WHERE d.id = prev.id
         RETURNING prev.status, prev.credit_applied`,
		saleID, customerID).Scan(&oldStatus, &oldCredit)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	restored := decimal.Zero
	if oldStatus == string(models.StepStatusCompleted) && oldCredit.Valid && oldCredit.Decimal.IsPositive() {
		restored = oldCredit.Decimal
		_, err = tx.Exec(ctx,
			`UPDATE customer SET credit = credit + $2, updated_at=now() WHERE id=$1`,
			customerID, restored)
		if err != nil {
			return decimal.Zero, false, err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE sale SET status='in_progress', updated_at=now()
         WHERE id=$1 AND status='completed'`, saleID)
	if err != nil {
		return decimal.Zero, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, false, err
	}
	return restored, true, nil
}

// autoCompleteSale flips the sale to completed once no pending step is
// left, inside the caller's transaction.
func (r *DeliveryStepRepository) autoCompleteSale(ctx context.Context, tx pgx.Tx, saleID int) error {
	_, err := tx.Exec(ctx,
		`UPDATE sale SET status='completed', updated_at=now()
         WHERE id=$1 AND status='in_progress'
           AND NOT EXISTS (SELECT 1 FROM delivery_step WHERE sale_id=$1 AND status='pending')`,
		saleID)
	return err
}

func scanStep(row pgx.Row) (*models.DeliveryStep, error) {
	var step models.DeliveryStep
	var amount, credit decimal.NullDecimal
	err := row.Scan(&step.ID, &step.SaleID, &step.CustomerID, &step.SequenceOrder, &step.Status,
		&step.IsNext, &step.CompletedAt, &amount, &credit, &step.SkipReason, &step.CustomerName)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		step.AmountCollected = &amount.Decimal
	}
	if credit.Valid {
		step.CreditApplied = &credit.Decimal
	}
	return &step, nil
}
