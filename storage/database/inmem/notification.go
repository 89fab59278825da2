package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/scanlab/scanlab/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = uuid.New().String()
	repo.db.table = append(repo.db.table, &n)
	return n, nil
}

func (repo *notificationRepository) QueryNotificationsByStudent(_ context.Context, studentID string) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notes := make([]notification.Notification, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- { // most recent first
		if n := repo.db.table[i]; n.StudentID == studentID {
			notes = append(notes, *n)
		}
	}
	return notes, nil
}

func (repo *notificationRepository) MarkNotificationsRead(_ context.Context, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.table {
		if n.StudentID == studentID && !n.IsRead {
			n.IsRead = true
		}
	}
	return nil
}
