package simulation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("parameter record not found")

	nowFunc = time.Now // mockable
)

type Repository interface {
	// UpsertRecord atomically creates or replaces the record keyed on
	// (OwnerID, ImageID). On replace the stored CreatedAt is preserved.
	UpsertRecord(ctx context.Context, rec Record) (Record, error)
	GetRecord(ctx context.Context, ownerID, imageID string) (Record, error)
	QueryRecordsByOwner(ctx context.Context, ownerID string) ([]Record, error)
	QueryAllRecords(ctx context.Context) ([]Record, error)
}

// OwnerResolver resolves a record's owner ID to display data.
// Implementations return ErrOwnerNotFound when the owner no longer exists.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, id string) (Owner, error)
}

type Service struct {
	repo     Repository
	resolver OwnerResolver
	validate *validator.Validate
}

func NewService(repo Repository, resolver OwnerResolver, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		validate: validate,
	}
}

// Save validates and persists a student's parameter set for one image.
// Saving the same (owner, image) pair again overwrites the previous record
// in place; nothing is persisted when validation fails.
func (svc *Service) Save(ctx context.Context, sr SaveRecord) (Record, error) {
	if err := sr.Validate(svc.validate); err != nil {
		return Record{}, err
	}

	now := nowFunc().UTC()
	rec := Record{
		OwnerID:    sr.OwnerID,
		ImageID:    sr.ImageID,
		ImageName:  sr.ImageName,
		Parameters: sr.Parameters,
		Overlay:    sr.Overlay,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.UpsertRecord(ctx, rec)
}

func (svc *Service) Get(ctx context.Context, ownerID, imageID string) (Record, error) {
	return svc.repo.GetRecord(ctx, ownerID, imageID)
}

// ListByOwner returns a student's saved records. Listing never mutates
// the records; the result is empty (not nil) for unknown owners.
func (svc *Service) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	return svc.repo.QueryRecordsByOwner(ctx, ownerID)
}

// ListSubmissions returns all saved records grouped per student, for the
// lecturer review screen.
func (svc *Service) ListSubmissions(ctx context.Context) ([]GroupedSubmission, error) {
	records, err := svc.repo.QueryAllRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying parameter records")
	}
	return GroupByOwner(ctx, records, svc.resolver), nil
}

// GroupByOwner groups records by resolved owner. Group order follows the
// first record encountered for each owner and records keep their relative
// order within a group. Records whose owner cannot be resolved are skipped.
func GroupByOwner(ctx context.Context, records []Record, resolver OwnerResolver) []GroupedSubmission {
	groups := make([]GroupedSubmission, 0, len(records))
	idx := make(map[string]int, len(records))

	for _, rec := range records {
		i, seen := idx[rec.OwnerID]
		if !seen {
			owner, err := resolver.ResolveOwner(ctx, rec.OwnerID)
			if err != nil {
				idx[rec.OwnerID] = -1
				continue
			}
			groups = append(groups, GroupedSubmission{Student: owner})
			i = len(groups) - 1
			idx[rec.OwnerID] = i
		}
		if i < 0 {
			continue
		}
		groups[i].Images = append(groups[i].Images, rec)
	}
	return groups
}
