package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core/notification"
)

type notificationRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	LecturerID string      `db:"lecturer_id"`
	ImageID    string      `db:"image_id"`
	Comment    null.String `db:"comment"`
	Mark       null.Int    `db:"mark"`
	IsRead     bool        `db:"is_read"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) toRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:         n.ID,
		StudentID:  n.StudentID,
		LecturerID: n.LecturerID,
		ImageID:    n.ImageID,
		Comment:    n.Comment,
		Mark:       n.Mark,
		IsRead:     n.IsRead,
		CreatedAt:  null.NewTime(n.CreatedAt.UTC(), !n.CreatedAt.IsZero()),
		UpdatedAt:  null.NewTime(n.UpdatedAt.UTC(), !n.UpdatedAt.IsZero()),
	}
}

func (repo notificationRepository) fromRow(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:         row.ID,
		StudentID:  row.StudentID,
		LecturerID: row.LecturerID,
		ImageID:    row.ImageID,
		Comment:    row.Comment,
		Mark:       row.Mark,
		IsRead:     row.IsRead,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	const q = `
		INSERT INTO notification (id, student_id, lecturer_id, image_id, comment, mark, is_read, created_at, updated_at)
		VALUES (:id, :student_id, :lecturer_id, :image_id, :comment, :mark, :is_read, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(n)); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) QueryNotificationsByStudent(ctx context.Context, studentID string) ([]notification.Notification, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []notification.Notification{}, nil
	}

	var rows []notificationRow
	const q = `SELECT * FROM notification WHERE student_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}

	notes := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, repo.fromRow(row))
	}
	return notes, nil
}

func (repo notificationRepository) MarkNotificationsRead(ctx context.Context, studentID string) error {
	if _, err := uuid.Parse(studentID); err != nil {
		return nil
	}

	const q = `UPDATE notification SET is_read = true WHERE student_id = $1 AND NOT is_read`
	if _, err := repo.db.ExecContext(ctx, q, studentID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return nil
}
