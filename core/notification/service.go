package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core"
)

var (
	ErrNotFound       = errors.New("notification not found")
	ErrPersonNotFound = errors.New("person not found")

	nowFunc = time.Now // mockable
)

type Repository interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	// QueryNotificationsByStudent returns a student's notifications, most
	// recent first.
	QueryNotificationsByStudent(ctx context.Context, studentID string) ([]Notification, error)
	// MarkNotificationsRead flags all of a student's unread notifications read.
	MarkNotificationsRead(ctx context.Context, studentID string) error
}

// PersonResolver resolves a user ID to display data. Implementations return
// ErrPersonNotFound when the account no longer exists.
type PersonResolver interface {
	ResolvePerson(ctx context.Context, id string) (Person, error)
}

type Service struct {
	repo     Repository
	resolver PersonResolver
	mailSvc  core.EmailService
	conf     *core.Config
}

func NewService(repo Repository, resolver PersonResolver, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// Notify records lecturer feedback for a student and emails the student
// about it. The email is best-effort; feedback is kept either way.
func (svc *Service) Notify(ctx context.Context, lecturerID string, nn NewNotification) (Notification, error) {
	student, err := svc.resolver.ResolvePerson(ctx, nn.StudentID)
	if err != nil {
		return Notification{}, err
	}

	now := nowFunc().UTC()
	n := Notification{
		StudentID:  nn.StudentID,
		LecturerID: lecturerID,
		ImageID:    nn.ImageID,
		Comment:    nn.Comment,
		Mark:       nn.Mark,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	n, err = svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	svc.sendFeedbackMail(student, n)
	return n, nil
}

// ListForStudent returns the student's notifications, most recent first,
// then flags them read. Returned items carry the read state they had when
// queried, so the student can tell new feedback apart once.
func (svc *Service) ListForStudent(ctx context.Context, studentID string) ([]StudentNotification, error) {
	notes, err := svc.repo.QueryNotificationsByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}

	lecturers := make(map[string]Person, len(notes))
	views := make([]StudentNotification, 0, len(notes))
	for _, n := range notes {
		lecturer, seen := lecturers[n.LecturerID]
		if !seen {
			// a missing lecturer account leaves the zero Person
			lecturer, _ = svc.resolver.ResolvePerson(ctx, n.LecturerID)
			lecturers[n.LecturerID] = lecturer
		}
		views = append(views, StudentNotification{Notification: n, Lecturer: lecturer})
	}

	if err := svc.repo.MarkNotificationsRead(ctx, studentID); err != nil {
		return nil, errors.Wrap(err, "marking notifications read")
	}
	return views, nil
}

func (svc *Service) sendFeedbackMail(student Person, n Notification) {
	if student.Email == "" {
		return
	}

	body := fmt.Sprintf("Hi %s,\n\nA lecturer reviewed your work", student.Name)
	if n.ImageID != "" {
		body += fmt.Sprintf(" on image %q", n.ImageID)
	}
	body += "."
	if n.Mark.Valid {
		body += fmt.Sprintf("\n\nMark: %d/100", n.Mark.Int)
	}
	if n.Comment.Valid {
		body += fmt.Sprintf("\n\nComment:\n%s", n.Comment.String)
	}
	body += fmt.Sprintf("\n\nLog in to %s to see the details.", svc.conf.AppName)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject: "New Feedback Received",
		Body:    body,
	})
}
