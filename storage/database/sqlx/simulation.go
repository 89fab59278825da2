package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core/simulation"
)

type recordRow struct {
	ID         string    `db:"id"`
	OwnerID    string    `db:"owner_id"`
	ImageID    string    `db:"image_id"`
	ImageName  string    `db:"image_name"`
	Parameters []byte    `db:"parameters"`
	Overlay    null.JSON `db:"overlay"`
	CreatedAt  null.Time `db:"created_at"`
	UpdatedAt  null.Time `db:"updated_at"`
}

type recordRepository struct {
	db *sqlx.DB
}

var _ simulation.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *sqlx.DB) *recordRepository {
	return &recordRepository{db: db}
}

func (repo recordRepository) toRow(rec simulation.Record) (recordRow, error) {
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return recordRow{}, errors.Wrap(err, "marshaling parameters")
	}
	row := recordRow{
		ID:         rec.ID,
		OwnerID:    rec.OwnerID,
		ImageID:    rec.ImageID,
		ImageName:  rec.ImageName,
		Parameters: params,
		CreatedAt:  null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}
	if rec.Overlay != nil {
		overlay, err := json.Marshal(rec.Overlay)
		if err != nil {
			return recordRow{}, errors.Wrap(err, "marshaling overlay")
		}
		row.Overlay = null.JSONFrom(overlay)
	}
	return row, nil
}

func (repo recordRepository) fromRow(row recordRow) (simulation.Record, error) {
	rec := simulation.Record{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		ImageID:   row.ImageID,
		ImageName: row.ImageName,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if len(row.Parameters) > 0 {
		if err := json.Unmarshal(row.Parameters, &rec.Parameters); err != nil {
			return simulation.Record{}, errors.Wrap(err, "unmarshaling parameters")
		}
	}
	if row.Overlay.Valid {
		rec.Overlay = new(simulation.Overlay)
		if err := json.Unmarshal(row.Overlay.JSON, rec.Overlay); err != nil {
			return simulation.Record{}, errors.Wrap(err, "unmarshaling overlay")
		}
	}
	return rec, nil
}

func (repo recordRepository) fromRows(rows []recordRow) ([]simulation.Record, error) {
	records := make([]simulation.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo recordRepository) UpsertRecord(ctx context.Context, rec simulation.Record) (simulation.Record, error) {
	rec.ID = uuid.New().String()
	row, err := repo.toRow(rec)
	if err != nil {
		return simulation.Record{}, err
	}

	// the conflict branch keeps the original id and created_at
	const q = `
		INSERT INTO image_parameter (id, owner_id, image_id, image_name, parameters, overlay, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, image_id) DO UPDATE
		SET image_name = EXCLUDED.image_name,
			parameters = EXCLUDED.parameters,
			overlay    = EXCLUDED.overlay,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	err = repo.db.QueryRowxContext(
		ctx, q,
		row.ID, row.OwnerID, row.ImageID, row.ImageName, row.Parameters, row.Overlay, row.CreatedAt, row.UpdatedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return simulation.Record{}, errors.Wrap(err, "upserting parameter record")
	}
	return rec, nil
}

func (repo recordRepository) GetRecord(ctx context.Context, ownerID, imageID string) (simulation.Record, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return simulation.Record{}, simulation.ErrNotFound
	}

	var row recordRow
	const q = `SELECT * FROM image_parameter WHERE owner_id = $1 AND image_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, ownerID, imageID); err != nil {
		if err == sql.ErrNoRows {
			return simulation.Record{}, simulation.ErrNotFound
		}
		return simulation.Record{}, errors.Wrap(err, "finding parameter record")
	}
	return repo.fromRow(row)
}

func (repo recordRepository) QueryRecordsByOwner(ctx context.Context, ownerID string) ([]simulation.Record, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return []simulation.Record{}, nil
	}

	var rows []recordRow
	const q = `SELECT * FROM image_parameter WHERE owner_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying parameter records")
	}
	return repo.fromRows(rows)
}

func (repo recordRepository) QueryAllRecords(ctx context.Context) ([]simulation.Record, error) {
	var rows []recordRow
	const q = `SELECT * FROM image_parameter ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying parameter records")
	}
	return repo.fromRows(rows)
}
