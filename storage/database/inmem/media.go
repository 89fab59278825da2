package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/scanlab/scanlab/core/media"
)

type mediaRepository struct {
	db *mediaTable
}

var _ media.Repository = (*mediaRepository)(nil) // interface compliance check

func NewMediaRepository(db *DB) *mediaRepository {
	return &mediaRepository{db: db.media}
}

func (repo *mediaRepository) CreateMedia(_ context.Context, m media.Media) (media.Media, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m.ID = uuid.New().String()
	repo.db.table = append(repo.db.table, &m)
	return m, nil
}

func (repo *mediaRepository) QueryAllMedia(_ context.Context) ([]media.Media, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]media.Media, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		res = append(res, *m)
	}
	return res, nil
}

func (repo *mediaRepository) QueryMediaByCategory(_ context.Context, category string) ([]media.Media, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]media.Media, 0)
	for _, m := range repo.db.table {
		if m.Category == category {
			res = append(res, *m)
		}
	}
	return res, nil
}

func (repo *mediaRepository) GetMediaByID(_ context.Context, id string) (media.Media, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, m := range repo.db.table {
		if m.ID == id {
			return *m, nil
		}
	}
	return media.Media{}, media.ErrNotFound
}

func (repo *mediaRepository) DeleteMediaByID(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, m := range repo.db.table {
		if m.ID == id {
			repo.db.table = append(repo.db.table[:i], repo.db.table[i+1:]...)
			return nil
		}
	}
	return media.ErrNotFound
}
