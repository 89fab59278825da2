package assistant

import (
	"fmt"
	"strconv"

	"github.com/volatiletech/null/v8"
)

type (
	// ParamRange bounds a timing parameter in milliseconds. Min and Max are
	// zero when only an ideal value is known.
	ParamRange struct {
		Min   int
		Max   int
		Ideal int
	}

	// SequenceProfile holds the reference acquisition values for one MRI
	// sequence type. FlipAngle is unset for sequences where it varies.
	SequenceProfile struct {
		TR          ParamRange
		TE          ParamRange
		FlipAngle   null.Int
		Description string
	}
)

// sequenceProfiles is keyed by exact sequence-type name. Lookups are
// case-sensitive; unknown keys simply yield no profile.
var sequenceProfiles = map[string]SequenceProfile{
	"T1-Weighted": {
		TR:          ParamRange{Min: 300, Max: 800, Ideal: 500},
		TE:          ParamRange{Min: 10, Max: 30, Ideal: 20},
		FlipAngle:   null.IntFrom(90),
		Description: "T1-weighted imaging is useful for anatomical detail and fat-containing structures.",
	},
	"T2-Weighted": {
		TR:          ParamRange{Min: 1500, Max: 3000, Ideal: 2000},
		TE:          ParamRange{Min: 70, Max: 150, Ideal: 90},
		FlipAngle:   null.IntFrom(90),
		Description: "T2-weighted imaging is excellent for detecting pathology and fluid.",
	},
	"FLAIR": {
		TR:          ParamRange{Min: 2000, Max: 5000, Ideal: 3000},
		TE:          ParamRange{Min: 80, Max: 140, Ideal: 100},
		Description: "FLAIR is useful for suppressing CSF signal while maintaining T2 contrast.",
	},
	"DWI": {
		TR:          ParamRange{Min: 3000, Max: 6000, Ideal: 4000},
		TE:          ParamRange{Min: 70, Max: 120, Ideal: 90},
		Description: "Diffusion-weighted imaging is crucial for detecting early ischemic changes.",
	},
	"GRE": {
		TR:          ParamRange{Ideal: 1000},
		TE:          ParamRange{Ideal: 25},
		FlipAngle:   null.IntFrom(30),
		Description: "Gradient echo sequences are useful for detecting hemorrhage and calcification.",
	},
}

// LookupProfile returns the reference profile for a sequence type, if known.
func LookupProfile(sequenceType string) (SequenceProfile, bool) {
	p, ok := sequenceProfiles[sequenceType]
	return p, ok
}

func (r ParamRange) HasRange() bool { return r.Min != 0 || r.Max != 0 }

// Format renders the range as "500ms (range: 300-800ms)", or just the ideal
// value when no range is known.
func (r ParamRange) Format() string {
	if r.HasRange() {
		return fmt.Sprintf("%dms (range: %d-%dms)", r.Ideal, r.Min, r.Max)
	}
	return fmt.Sprintf("%dms", r.Ideal)
}

// FormatFlipAngle renders the flip angle value, or "Variable" when the
// sequence has no fixed flip angle.
func (p SequenceProfile) FormatFlipAngle() string {
	if p.FlipAngle.Valid {
		return strconv.Itoa(p.FlipAngle.Int)
	}
	return "Variable"
}
