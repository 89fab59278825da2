package media

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/scanlab/scanlab/core"
	"github.com/scanlab/scanlab/core/simulation"
)

const (
	TypeImage = "image"
	TypeVideo = "video"
)

// Media is a teaching asset (scan image or tutorial video) served to the
// simulator, optionally carrying preset acquisition parameters.
type Media struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Description       null.String           `json:"description"`
	Category          string                `json:"category"`
	MediaType         string                `json:"media_type"`
	Filename          string                `json:"filename"`
	ThumbnailFilename null.String           `json:"thumbnail_filename"`
	Parameters        simulation.Parameters `json:"parameters"`
	StoragePath       string                `json:"storage_path"`
	CreatedAt         time.Time             `json:"created_at"` // UTC
	UpdatedAt         time.Time             `json:"updated_at"` // UTC
}

// NewMedia contains the metadata for a teaching asset upload; the file
// itself travels separately.
type NewMedia struct {
	Name        string                `json:"name" validate:"required"`
	Description null.String           `json:"description"`
	Category    string                `json:"category" validate:"required,oneof=Brain Spine Abdominal"`
	MediaType   string                `json:"mediaType" validate:"required,oneof=image video"`
	Parameters  simulation.Parameters `json:"parameters"`
}

func (nm *NewMedia) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Category = core.CleanString(nm.Category)
	nm.MediaType = core.CleanString(nm.MediaType)
	if nm.Description.Valid {
		nm.Description = null.StringFrom(core.CleanString(nm.Description.String))
	}
	return validate.Struct(nm)
}

// StoragePath is the object-store prefix the file lands under: videos are
// grouped together, images go under their anatomy category.
func (nm NewMedia) StoragePath() string {
	if nm.MediaType == TypeVideo {
		return TypeVideo
	}
	return strings.ToLower(nm.Category)
}
