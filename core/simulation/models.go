package simulation

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core"
)

// Geometry holds the slice geometry settings a student dialed in on the
// simulator. All fields are optional; partial sets are persisted as given.
type Geometry struct {
	FOV               null.Float64 `json:"fov"`
	MatrixSize        null.String  `json:"matrixSize"`
	SliceThickness    null.Float64 `json:"sliceThickness"`
	SliceGap          null.Float64 `json:"sliceGap"`
	PlaneOrientation  null.String  `json:"planeOrientation"`
	FoldoverDirection null.String  `json:"foldoverDirection"`
}

// Sequence holds the pulse sequence settings.
type Sequence struct {
	TR            null.Float64 `json:"tr"`
	TE            null.Float64 `json:"te"`
	FlipAngle     null.Float64 `json:"flipAngle"`
	PulseSequence null.String  `json:"pulseSequence"`
}

type Parameters struct {
	Geometry Geometry `json:"geometry"`
	Sequence Sequence `json:"sequence"`
}

// Overlay is the slice-positioning rectangle drawn over a displayed image,
// in UI coordinates.
type Overlay struct {
	Left   null.Float64 `json:"left"`
	Top    null.Float64 `json:"top"`
	Width  null.Float64 `json:"width"`
	Height null.Float64 `json:"height"`
	Angle  null.Float64 `json:"angle"`
}

// Validate requires left, top, width and height to be present; angle stays
// optional. A zero value is valid, only absence fails, and every missing
// field is reported. A nil overlay is valid.
func (o *Overlay) Validate() error {
	if o == nil {
		return nil
	}

	required := []struct {
		name  string
		valid bool
	}{
		{"left", o.Left.Valid},
		{"top", o.Top.Valid},
		{"width", o.Width.Valid},
		{"height", o.Height.Valid},
	}

	var missing []string
	var flds []core.FieldError
	for _, f := range required {
		if !f.valid {
			missing = append(missing, f.name)
			flds = append(flds, core.FieldError{Field: f.name, Error: "this overlay field is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(
			fmt.Errorf("missing overlay fields: %s", strings.Join(missing, ", ")), flds...)
	}
	return nil
}

// Record is one student's saved configuration for one simulated image.
// At most one Record exists per (OwnerID, ImageID) pair; re-saving the same
// pair overwrites parameters, overlay and image name in place.
type Record struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	ImageID    string     `json:"image_id"`
	ImageName  string     `json:"image_name"`
	Parameters Parameters `json:"parameters"`
	Overlay    *Overlay   `json:"overlay,omitempty"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// SaveRecord contains the information needed to save parameters for an image.
type SaveRecord struct {
	OwnerID    string     `json:"ownerId" validate:"required"`
	ImageID    string     `json:"imageId" validate:"required"`
	ImageName  string     `json:"imageName" validate:"required"`
	Parameters Parameters `json:"parameters"`
	Overlay    *Overlay   `json:"overlay"`
}

func (sr *SaveRecord) Validate(validate *validator.Validate) error {
	sr.ImageID = core.CleanString(sr.ImageID)
	sr.ImageName = core.CleanString(sr.ImageName)

	if err := validate.Struct(sr); err != nil {
		return err
	}
	return sr.Overlay.Validate()
}

// Owner identifies the student a record belongs to.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var ErrOwnerNotFound = errors.New("owner not found")

// GroupedSubmission is the lecturer-facing aggregation of one student's
// saved records. It is built on demand and never persisted.
type GroupedSubmission struct {
	Student Owner    `json:"student"`
	Images  []Record `json:"images"`
}
