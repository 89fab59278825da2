package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("media not found")

	nowFunc = time.Now // mockable
)

type Repository interface {
	CreateMedia(ctx context.Context, m Media) (Media, error)
	QueryAllMedia(ctx context.Context) ([]Media, error)
	QueryMediaByCategory(ctx context.Context, category string) ([]Media, error)
	GetMediaByID(ctx context.Context, id string) (Media, error)
	DeleteMediaByID(ctx context.Context, id string) error
}

// FileStore persists media blobs, keyed by object name.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

type Service struct {
	repo     Repository
	store    FileStore
	validate *validator.Validate
}

func NewService(repo Repository, store FileStore, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		validate: validate,
	}
}

// Upload stores the file then records its metadata. The stored object is
// removed again if the metadata write fails.
func (svc *Service) Upload(ctx context.Context, nm NewMedia, filename, contentType string, size int64, r io.Reader) (Media, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Media{}, err
	}

	key := fmt.Sprintf("%s/%s%s", nm.StoragePath(), uuid.New().String(), filepath.Ext(filename))
	if err := svc.store.Put(ctx, key, r, size, contentType); err != nil {
		return Media{}, errors.Wrap(err, "storing media file")
	}

	now := nowFunc().UTC()
	m := Media{
		Name:        nm.Name,
		Description: nm.Description,
		Category:    nm.Category,
		MediaType:   nm.MediaType,
		Filename:    key,
		Parameters:  nm.Parameters,
		StoragePath: nm.StoragePath(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m, err := svc.repo.CreateMedia(ctx, m)
	if err != nil {
		_ = svc.store.Remove(ctx, key)
		return Media{}, errors.Wrap(err, "creating media")
	}
	return m, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Media, error) {
	return svc.repo.QueryAllMedia(ctx)
}

func (svc *Service) QueryByCategory(ctx context.Context, category string) ([]Media, error) {
	return svc.repo.QueryMediaByCategory(ctx, category)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Media, error) {
	return svc.repo.GetMediaByID(ctx, id)
}

// Download returns the media metadata and an open reader on its file.
// The caller closes the reader.
func (svc *Service) Download(ctx context.Context, id string) (Media, io.ReadCloser, error) {
	m, err := svc.repo.GetMediaByID(ctx, id)
	if err != nil {
		return Media{}, nil, err
	}
	rc, err := svc.store.Get(ctx, m.Filename)
	if err != nil {
		return Media{}, nil, errors.Wrap(err, "opening media file")
	}
	return m, rc, nil
}

// Delete removes the metadata first so the asset disappears from listings
// even when the blob removal fails.
func (svc *Service) Delete(ctx context.Context, id string) error {
	m, err := svc.repo.GetMediaByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteMediaByID(ctx, id); err != nil {
		return errors.Wrap(err, "deleting media")
	}
	_ = svc.store.Remove(ctx, m.Filename)
	return nil
}
