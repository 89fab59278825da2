package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core/media"
)

type mediaRow struct {
	ID                string      `db:"id"`
	Name              string      `db:"name"`
	Description       null.String `db:"description"`
	Category          string      `db:"category"`
	MediaType         string      `db:"media_type"`
	Filename          string      `db:"filename"`
	ThumbnailFilename null.String `db:"thumbnail_filename"`
	Parameters        []byte      `db:"parameters"`
	StoragePath       string      `db:"storage_path"`
	CreatedAt         null.Time   `db:"created_at"`
	UpdatedAt         null.Time   `db:"updated_at"`
}

type mediaRepository struct {
	db *sqlx.DB
}

var _ media.Repository = (*mediaRepository)(nil) // interface compliance check

func NewMediaRepository(db *sqlx.DB) *mediaRepository {
	return &mediaRepository{db: db}
}

func (repo mediaRepository) toRow(m media.Media) (mediaRow, error) {
	params, err := json.Marshal(m.Parameters)
	if err != nil {
		return mediaRow{}, errors.Wrap(err, "marshaling parameters")
	}
	return mediaRow{
		ID:                m.ID,
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		MediaType:         m.MediaType,
		Filename:          m.Filename,
		ThumbnailFilename: m.ThumbnailFilename,
		Parameters:        params,
		StoragePath:       m.StoragePath,
		CreatedAt:         null.NewTime(m.CreatedAt.UTC(), !m.CreatedAt.IsZero()),
		UpdatedAt:         null.NewTime(m.UpdatedAt.UTC(), !m.UpdatedAt.IsZero()),
	}, nil
}

func (repo mediaRepository) fromRow(row mediaRow) (media.Media, error) {
	m := media.Media{
		ID:                row.ID,
		Name:              row.Name,
		Description:       row.Description,
		Category:          row.Category,
		MediaType:         row.MediaType,
		Filename:          row.Filename,
		ThumbnailFilename: row.ThumbnailFilename,
		StoragePath:       row.StoragePath,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
	if len(row.Parameters) > 0 {
		if err := json.Unmarshal(row.Parameters, &m.Parameters); err != nil {
			return media.Media{}, errors.Wrap(err, "unmarshaling parameters")
		}
	}
	return m, nil
}

func (repo mediaRepository) fromRows(rows []mediaRow) ([]media.Media, error) {
	res := make([]media.Media, 0, len(rows))
	for _, row := range rows {
		m, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func (repo mediaRepository) CreateMedia(ctx context.Context, m media.Media) (media.Media, error) {
	m.ID = uuid.New().String()
	row, err := repo.toRow(m)
	if err != nil {
		return media.Media{}, err
	}

	const q = `
		INSERT INTO media (id, name, description, category, media_type, filename, thumbnail_filename,
			parameters, storage_path, created_at, updated_at)
		VALUES (:id, :name, :description, :category, :media_type, :filename, :thumbnail_filename,
			:parameters, :storage_path, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return media.Media{}, errors.Wrap(err, "inserting media")
	}
	return m, nil
}

func (repo mediaRepository) QueryAllMedia(ctx context.Context) ([]media.Media, error) {
	var rows []mediaRow
	const q = `SELECT * FROM media ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying media")
	}
	return repo.fromRows(rows)
}

func (repo mediaRepository) QueryMediaByCategory(ctx context.Context, category string) ([]media.Media, error) {
	var rows []mediaRow
	const q = `SELECT * FROM media WHERE category = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, category); err != nil {
		return nil, errors.Wrap(err, "querying media by category")
	}
	return repo.fromRows(rows)
}

func (repo mediaRepository) GetMediaByID(ctx context.Context, id string) (media.Media, error) {
	if _, err := uuid.Parse(id); err != nil {
		return media.Media{}, media.ErrNotFound
	}

	var row mediaRow
	const q = `SELECT * FROM media WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, errors.Wrap(err, "finding media by ID")
	}
	return repo.fromRow(row)
}

func (repo mediaRepository) DeleteMediaByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return media.ErrNotFound
	}

	const q = `DELETE FROM media WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrap(err, "deleting media")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return media.ErrNotFound
	}
	return nil
}
