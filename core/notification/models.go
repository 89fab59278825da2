package notification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core"
)

// Notification is a piece of lecturer feedback (comment and/or mark) on a
// student's saved image parameters.
type Notification struct {
	ID         string      `json:"id"`
	StudentID  string      `json:"student_id"`
	LecturerID string      `json:"lecturer_id"`
	ImageID    string      `json:"image_id"`
	Comment    null.String `json:"comment"`
	Mark       null.Int    `json:"mark"`
	IsRead     bool        `json:"is_read"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// Person is the display identity of a notification party.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StudentNotification is a notification as shown to the student, with the
// sending lecturer resolved. Lecturer is zero when the account is gone.
type StudentNotification struct {
	Notification
	Lecturer Person `json:"lecturer"`
}

// NewNotification contains the feedback a lecturer sends to one student.
type NewNotification struct {
	StudentID string      `json:"studentId" validate:"required"`
	ImageID   string      `json:"imageId"`
	Comment   null.String `json:"comment"`
	Mark      null.Int    `json:"mark"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.StudentID = core.CleanString(nn.StudentID)
	nn.ImageID = core.CleanString(nn.ImageID)
	if nn.Comment.Valid {
		nn.Comment = null.StringFrom(core.CleanString(nn.Comment.String))
	}

	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.Mark.Valid && (nn.Mark.Int < 0 || nn.Mark.Int > 100) {
		return core.NewValidationError(
			errors.New("invalid mark"),
			core.FieldError{Field: "mark", Error: "mark must be between 0 and 100"},
		)
	}
	if !nn.Comment.Valid && !nn.Mark.Valid {
		return core.NewValidationError(
			errors.New("empty feedback"),
			core.FieldError{Field: "comment", Error: "one of comment or mark is required"},
			core.FieldError{Field: "mark", Error: "one of comment or mark is required"},
		)
	}
	return nil
}
