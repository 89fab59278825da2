package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

// fakeRepo is an insertion-ordered in-memory Repository for service tests.
type fakeRepo struct {
	records []Record
}

func (r *fakeRepo) UpsertRecord(_ context.Context, rec Record) (Record, error) {
	for i, existing := range r.records {
		if existing.OwnerID == rec.OwnerID && existing.ImageID == rec.ImageID {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			r.records[i] = rec
			return rec, nil
		}
	}
	rec.ID = uuid.New().String()
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *fakeRepo) GetRecord(_ context.Context, ownerID, imageID string) (Record, error) {
	for _, rec := range r.records {
		if rec.OwnerID == ownerID && rec.ImageID == imageID {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *fakeRepo) QueryRecordsByOwner(_ context.Context, ownerID string) ([]Record, error) {
	records := make([]Record, 0)
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *fakeRepo) QueryAllRecords(_ context.Context) ([]Record, error) {
	return append([]Record{}, r.records...), nil
}

// fakeResolver resolves only the owners it was given.
type fakeResolver struct {
	owners map[string]Owner
}

func (r *fakeResolver) ResolveOwner(_ context.Context, id string) (Owner, error) {
	owner, ok := r.owners[id]
	if !ok {
		return Owner{}, ErrOwnerNotFound
	}
	return owner, nil
}

func TestServiceSave(t *testing.T) {
	ctx := context.Background()
	validate := validator.New()

	t.Run("missing required fields", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo, &fakeResolver{}, validate)

		_, err := svc.Save(ctx, SaveRecord{OwnerID: "owner1", ImageID: "img1"}) // no ImageName
		var vErrs validator.ValidationErrors
		require.True(t, errors.As(err, &vErrs), "expected validation errors, got %v", err)
		assert.Empty(t, repo.records, "nothing should be persisted on validation failure")
	})

	t.Run("incomplete overlay", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo, &fakeResolver{}, validate)

		_, err := svc.Save(ctx, SaveRecord{
			OwnerID:   "owner1",
			ImageID:   "img1",
			ImageName: "Brain Axial",
			Overlay:   &Overlay{Left: null.Float64From(5), Top: null.Float64From(5)},
		})
		require.Error(t, err)
		assert.Empty(t, repo.records)
	})

	t.Run("save then overwrite", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewService(repo, &fakeResolver{}, validate)

		t0 := time.Date(2021, time.March, 1, 10, 0, 0, 0, time.UTC)
		nowFunc = func() time.Time { return t0 }
		defer func() { nowFunc = time.Now }()

		sr := SaveRecord{
			OwnerID:   "owner1",
			ImageID:   "img1",
			ImageName: "Brain Axial",
		}
		sr.Parameters.Sequence.TR = null.Float64From(400)

		first, err := svc.Save(ctx, sr)
		require.NoError(t, err)
		assert.Equal(t, t0, first.CreatedAt)
		assert.Equal(t, t0, first.UpdatedAt)

		// same (owner, image) pair saved again overwrites in place
		nowFunc = func() time.Time { return t0.Add(time.Hour) }
		sr.Parameters.Sequence.TR = null.Float64From(550)
		second, err := svc.Save(ctx, sr)
		require.NoError(t, err)

		assert.Len(t, repo.records, 1)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.Equal(t, t0.Add(time.Hour), second.UpdatedAt)
		assert.Equal(t, null.Float64From(550), second.Parameters.Sequence.TR)

		// a different image for the same owner is a new record
		sr.ImageID = "img2"
		sr.ImageName = "Brain Sagittal"
		_, err = svc.Save(ctx, sr)
		require.NoError(t, err)
		assert.Len(t, repo.records, 2)
	})
}

func TestServiceListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := NewService(repo, &fakeResolver{}, validator.New())

	_, err := svc.Save(ctx, SaveRecord{OwnerID: "owner1", ImageID: "img1", ImageName: "Brain Axial"})
	require.NoError(t, err)

	// listing does not mutate records
	got1, err := svc.ListByOwner(ctx, "owner1")
	require.NoError(t, err)
	got2, err := svc.ListByOwner(ctx, "owner1")
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
	assert.Len(t, got1, 1)

	empty, err := svc.ListByOwner(ctx, "nosuchowner")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestGroupByOwner(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{owners: map[string]Owner{
		"a": {ID: "a", Name: "Alice", Email: "alice@test.test"},
		"b": {ID: "b", Name: "Bob", Email: "bob@test.test"},
	}}

	records := []Record{
		{OwnerID: "a", ImageID: "img1"},
		{OwnerID: "b", ImageID: "img1"},
		{OwnerID: "ghost", ImageID: "img1"}, // owner deleted since saving
		{OwnerID: "a", ImageID: "img2"},
	}

	groups := GroupByOwner(ctx, records, resolver)
	require.Len(t, groups, 2)

	assert.Equal(t, "Alice", groups[0].Student.Name)
	require.Len(t, groups[0].Images, 2)
	assert.Equal(t, "img1", groups[0].Images[0].ImageID)
	assert.Equal(t, "img2", groups[0].Images[1].ImageID)

	assert.Equal(t, "Bob", groups[1].Student.Name)
	assert.Len(t, groups[1].Images, 1)
}
