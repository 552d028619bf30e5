package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/types"
)

const pgUniqueViolation = "23505"

const vehicleColumns = `id, owner_id, year, make, model, trim, vin, price_cents, mileage,
	exterior_color, interior_color, images, description, status, facebook_post_status,
	external_post_id, source, vin_decoding, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// FindByOwnerVIN retrieves a vehicle by its (owner, vin) key
func (db *DB) FindByOwnerVIN(ctx context.Context, ownerID uuid.UUID, vin string) (*types.Vehicle, error) {
	v, err := scanVehicle(db.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE owner_id = $1 AND vin = $2`,
		ownerID, vin,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vehicle by vin: %w", err)
	}
	return v, nil
}

// GetVehicle retrieves a vehicle by its UUID
func (db *DB) GetVehicle(ctx context.Context, id uuid.UUID) (*types.Vehicle, error) {
	v, err := scanVehicle(db.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// InsertVehicle stores a new vehicle. A (owner, vin) collision returns ingest.ErrDuplicateVehicle.
func (db *DB) InsertVehicle(ctx context.Context, v *types.Vehicle) error {
	images, decoding, err := marshalJSONColumns(v)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		v.ID, v.OwnerID, v.Year, v.Make, v.Model, v.Trim, v.VIN, v.Price, v.Mileage,
		string(v.ExteriorColor), string(v.InteriorColor), images, v.Description,
		string(v.Status), string(v.FacebookPostStatus), v.ExternalPostID, v.Source, decoding,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert vehicle %s: %w", v.VINValue(), ingest.ErrDuplicateVehicle)
		}
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

// UpdateVehicle overwrites the listing fields of an existing vehicle.
// Posting state is only changed through UpdateVehicleStatus.
func (db *DB) UpdateVehicle(ctx context.Context, v *types.Vehicle) error {
	images, decoding, err := marshalJSONColumns(v)
	if err != nil {
		return err
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE vehicles SET
			year = $2, make = $3, model = $4, trim = $5, vin = $6, price_cents = $7, mileage = $8,
			exterior_color = $9, interior_color = $10, images = $11, description = $12,
			source = $13, vin_decoding = $14, updated_at = $15
		 WHERE id = $1`,
		v.ID, v.Year, v.Make, v.Model, v.Trim, v.VIN, v.Price, v.Mileage,
		string(v.ExteriorColor), string(v.InteriorColor), images, v.Description,
		v.Source, decoding, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update vehicle %s: %w", v.ID, ingest.ErrVehicleNotFound)
	}
	return nil
}

// UpdateVehicleStatus records a posting outcome. "posted" also marks the marketplace post as posted.
func (db *DB) UpdateVehicleStatus(ctx context.Context, u types.StatusUpdate, at time.Time) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE vehicles SET
			status = $2,
			facebook_post_status = CASE WHEN $2 = 'posted' THEN 'posted' ELSE facebook_post_status END,
			external_post_id = COALESCE($3, external_post_id),
			updated_at = $4
		 WHERE id = $1`,
		u.VehicleID, string(u.Status), u.ExternalPostID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update status %s: %w", u.VehicleID, ingest.ErrVehicleNotFound)
	}
	return nil
}

// ListPendingVehicles retrieves available draft vehicles, oldest first.
// A nil ownerID lists every owner.
func (db *DB) ListPendingVehicles(ctx context.Context, ownerID *uuid.UUID) ([]types.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE status = 'available' AND facebook_post_status = 'draft'`
	args := []any{}
	if ownerID != nil {
		query += " AND owner_id = $1"
		args = append(args, *ownerID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []types.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending vehicles: %w", err)
	}
	return vehicles, nil
}

// DeleteVehicle removes a vehicle
func (db *DB) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete vehicle %s: %w", id, ingest.ErrVehicleNotFound)
	}
	return nil
}

func scanVehicle(row rowScanner) (*types.Vehicle, error) {
	var (
		v                                      types.Vehicle
		exterior, interior, status, postStatus string
		imagesJSON, decodingJSON               []byte
	)
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Year, &v.Make, &v.Model, &v.Trim, &v.VIN, &v.Price, &v.Mileage,
		&exterior, &interior, &imagesJSON, &v.Description, &status, &postStatus,
		&v.ExternalPostID, &v.Source, &decodingJSON, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.ExteriorColor = types.StandardColor(exterior)
	v.InteriorColor = types.StandardColor(interior)
	v.Status = types.VehicleStatus(status)
	v.FacebookPostStatus = types.PostStatus(postStatus)
	if err := unmarshalJSONColumns(&v, imagesJSON, decodingJSON); err != nil {
		return nil, err
	}
	return &v, nil
}

func marshalJSONColumns(v *types.Vehicle) (images []byte, decoding []byte, err error) {
	imgs := v.Images
	if imgs == nil {
		imgs = []string{}
	}
	images, err = json.Marshal(imgs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal images: %w", err)
	}
	if v.Decoding != nil {
		decoding, err = json.Marshal(v.Decoding)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal vin decoding: %w", err)
		}
	}
	return images, decoding, nil
}

func unmarshalJSONColumns(v *types.Vehicle, imagesJSON, decodingJSON []byte) error {
	v.Images = []string{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &v.Images); err != nil {
			return fmt.Errorf("failed to unmarshal images: %w", err)
		}
	}
	if len(decodingJSON) > 0 {
		var d types.VinDecodingResult
		if err := json.Unmarshal(decodingJSON, &d); err != nil {
			return fmt.Errorf("failed to unmarshal vin decoding: %w", err)
		}
		v.Decoding = &d
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ ingest.Store = (*DB)(nil)
