package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/scanlab/scanlab/core/simulation"
)

type recordRepository struct {
	db *recordTable
}

var _ simulation.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) *recordRepository {
	return &recordRepository{db: db.record}
}

// UpsertRecord does the lookup and the write under one write lock so two
// concurrent saves of the same (owner, image) pair cannot both insert.
func (repo *recordRepository) UpsertRecord(_ context.Context, rec simulation.Record) (simulation.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, existing := range repo.db.table {
		if existing.OwnerID == rec.OwnerID && existing.ImageID == rec.ImageID {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			repo.db.table[i] = &rec
			return rec, nil
		}
	}

	rec.ID = uuid.New().String()
	repo.db.table = append(repo.db.table, &rec)
	return rec, nil
}

func (repo *recordRepository) GetRecord(_ context.Context, ownerID, imageID string) (simulation.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rec := range repo.db.table {
		if rec.OwnerID == ownerID && rec.ImageID == imageID {
			return *rec, nil
		}
	}
	return simulation.Record{}, simulation.ErrNotFound
}

func (repo *recordRepository) QueryRecordsByOwner(_ context.Context, ownerID string) ([]simulation.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]simulation.Record, 0)
	for _, rec := range repo.db.table {
		if rec.OwnerID == ownerID {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (repo *recordRepository) QueryAllRecords(_ context.Context) ([]simulation.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]simulation.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		records = append(records, *rec)
	}
	return records, nil
}
