package assistant

import (
	"regexp"
	"strconv"
)

var (
	trRegex        = regexp.MustCompile(`(?i)TR:\s*(\d+)\s*ms`)
	teRegex        = regexp.MustCompile(`(?i)TE:\s*(\d+)\s*ms`)
	flipAngleRegex = regexp.MustCompile(`(?i)Flip Angle:\s*(\d+)`)
)

// SuggestedParams carries the numeric suggestions pulled out of advice text
// so the UI can offer to apply them. Only matched fields are set.
type SuggestedParams struct {
	TR        *int `json:"tr,omitempty"`
	TE        *int `json:"te,omitempty"`
	FlipAngle *int `json:"flipAngle,omitempty"`
}

// ExtractParams scans advice text for TR, TE and flip angle suggestions.
// It returns nil when nothing matched and never fails on arbitrary input.
func ExtractParams(text string) *SuggestedParams {
	var sp SuggestedParams

	if v, ok := matchInt(trRegex, text); ok {
		sp.TR = &v
	}
	if v, ok := matchInt(teRegex, text); ok {
		sp.TE = &v
	}
	if v, ok := matchInt(flipAngleRegex, text); ok {
		sp.FlipAngle = &v
	}

	if sp.TR == nil && sp.TE == nil && sp.FlipAngle == nil {
		return nil
	}
	return &sp
}

func matchInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}
