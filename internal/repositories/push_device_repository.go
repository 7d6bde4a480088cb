package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// PushDeviceRepository owns the push device registry. It serves both the
// portal's register/unregister surface and the notification dispatcher's
// device directory.
type PushDeviceRepository struct {
	DB *pgxpool.Pool
}

func NewPushDeviceRepository(db *pgxpool.Pool) *PushDeviceRepository {
	return &PushDeviceRepository{DB: db}
}

// Register upserts by device token: a token moving to another customer or
// re-registering after deactivation is simply reclaimed.
func (r *PushDeviceRepository) Register(ctx context.Context, customerID int, deviceToken, deviceType string) (*models.PushDevice, error) {
	row := r.DB.QueryRow(ctx,
		`INSERT INTO push_device(customer_id, device_token, device_type)
         VALUES($1, $2, $3)
         ON CONFLICT (device_token) DO UPDATE
             SET customer_id=$1, device_type=$3, is_active=TRUE, last_used_at=now()
         RETURNING id, customer_id, device_token, device_type, is_active, created_at, last_used_at`,
		customerID, deviceToken, deviceType)

	var d models.PushDevice
	err := row.Scan(&d.ID, &d.CustomerID, &d.DeviceToken, &d.DeviceType, &d.IsActive, &d.CreatedAt, &d.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Unregister deactivates the customer's own registration; a token owned by
// another customer does not match.
func (r *PushDeviceRepository) Unregister(ctx context.Context, customerID int, deviceToken string) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE push_device SET is_active=FALSE
         WHERE customer_id=$1 AND device_token=$2 AND is_active`, customerID, deviceToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PushDeviceRepository) ActiveForCustomers(ctx context.Context, customerIDs []int) ([]models.PushDevice, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, customer_id, device_token, device_type, is_active, created_at, last_used_at
         FROM push_device
         WHERE customer_id = ANY($1) AND is_active`, customerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.PushDevice
	for rows.Next() {
		var d models.PushDevice
		err := rows.Scan(&d.ID, &d.CustomerID, &d.DeviceToken, &d.DeviceType, &d.IsActive, &d.CreatedAt, &d.LastUsedAt)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Deactivate retires a token the push gateway reported as permanently
// invalid.
func (r *PushDeviceRepository) Deactivate(ctx context.Context, deviceToken string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE push_device SET is_active=FALSE WHERE device_token=$1`, deviceToken)
	return err
}
