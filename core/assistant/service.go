package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core"
)

// ErrGeneration is returned when advice generation fails unexpectedly;
// remote model failures never surface it since local advice takes over.
var ErrGeneration = errors.New("advice generation failed")

const systemMessage = "You are a helpful MRI assistant with expert knowledge."

type (
	// Prompt is one text generation request.
	Prompt struct {
		System    string
		User      string
		Model     string
		MaxTokens int
	}

	// Generator turns a prompt into text, typically via a remote LLM API.
	Generator interface {
		Generate(ctx context.Context, p Prompt) (string, error)
	}

	// Question is a student's chat message plus the simulator state it was
	// asked from. CurrentParams is passed through verbatim for grounding.
	Question struct {
		Message       string          `json:"message" validate:"required"`
		CurrentParams json.RawMessage `json:"currentParams"`
		ImageName     string          `json:"imageName"`
		SequenceType  string          `json:"sequenceType"`
	}

	// Result is the advice returned to the student.
	Result struct {
		Response        string           `json:"response"`
		SuggestedParams *SuggestedParams `json:"suggestedParams,omitempty"`
	}

	Service struct {
		gen    Generator
		conf   *core.Config
		logger core.Logger
	}
)

func (q *Question) Validate(validate *validator.Validate) error {
	q.Message = core.CleanString(q.Message)
	q.ImageName = core.CleanString(q.ImageName)
	q.SequenceType = core.CleanString(q.SequenceType)
	return validate.Struct(q)
}

func NewService(gen Generator, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		gen:    gen,
		conf:   conf,
		logger: logger,
	}
}

// Advise answers a student question about the current simulation state.
// It tries the primary model with a fully grounded prompt, then the fallback
// model with a short prompt, and finally the local rule-based advice, so a
// result is produced even with no model reachable.
func (svc *Service) Advise(ctx context.Context, q Question) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrGeneration, "%v", r)
		}
	}()

	prompt := Prompt{
		System:    systemMessage,
		User:      buildPrompt(q),
		Model:     svc.conf.Groq.Model,
		MaxTokens: 800,
	}
	if text, genErr := svc.gen.Generate(ctx, prompt); genErr == nil {
		return Result{Response: text, SuggestedParams: ExtractParams(text)}, nil
	} else {
		svc.logger.Warn(fmt.Sprintf("assistant: primary model failed: %v", genErr))
	}

	prompt = Prompt{
		System:    systemMessage,
		User:      "You are an MRI assistant. " + q.Message,
		Model:     svc.conf.Groq.FallbackModel,
		MaxTokens: 500,
	}
	if text, genErr := svc.gen.Generate(ctx, prompt); genErr == nil {
		return Result{Response: text, SuggestedParams: ExtractParams(text)}, nil
	} else {
		svc.logger.Warn(fmt.Sprintf("assistant: fallback model failed: %v", genErr))
	}

	return localAdvice(q.Message, q.SequenceType), nil
}

// buildPrompt grounds the model in the student's current session and the
// reference values for the selected sequence type.
func buildPrompt(q Question) string {
	params := "{}"
	if len(q.CurrentParams) > 0 {
		params = string(q.CurrentParams)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an MRI assistant helping students with a simulation.\n")
	fmt.Fprintf(&b, "Current parameters: %s\n", params)
	fmt.Fprintf(&b, "Current image: %s\n", orNotSelected(q.ImageName))
	fmt.Fprintf(&b, "Current sequence type: %s\n\n", orNotSelected(q.SequenceType))
	b.WriteString("Keep your answers concise and educational. Focus on:\n" +
		"1. Parameter recommendations for MRI sequences\n" +
		"2. Slice positioning advice\n" +
		"3. Artifact prevention\n" +
		"4. Parameter validation\n\n" +
		"If recommending sequence parameters, always format your response in bullet points and include these details:\n" +
		"• TR: [value]ms (range: [min]-[max]ms)\n" +
		"• TE: [value]ms (range: [min]-[max]ms)\n" +
		"• Flip Angle: [value]° (if applicable)\n\n")

	fmt.Fprintf(&b, "For %s sequences, the typical parameters are:\n", orNotSelected(q.SequenceType))
	if p, ok := LookupProfile(q.SequenceType); ok {
		fmt.Fprintf(&b, "TR: %dms\nTE: %dms\nFlip Angle: %s°\n%s", p.TR.Ideal, p.TE.Ideal, p.FormatFlipAngle(), p.Description)
	} else {
		b.WriteString("Information not available for this sequence type.")
	}

	b.WriteString("\n\nUser question: " + q.Message)
	return b.String()
}

func orNotSelected(s string) string {
	if s == "" {
		return "Not selected"
	}
	return s
}

// Local rule-based advice

const (
	slicePositioningAdvice = "For optimal slice positioning:\n" +
		"1. Center the overlay box on your target anatomy\n" +
		"2. Ensure margins of at least 10% around the region of interest\n" +
		"3. Avoid oblique angles unless specifically required\n" +
		"4. Consider using multiple planes for complete coverage"

	artifactPreventionAdvice = "To minimize artifacts:\n" +
		"1. Use appropriate FOV (too small can cause wrap-around)\n" +
		"2. Maintain adequate slice gap (25-30% of slice thickness)\n" +
		"3. Adjust matrix size based on required resolution\n" +
		"4. Consider breath-holding or gating for motion-sensitive areas"

	genericAdvice = "I can help you with:\n" +
		"• Parameter recommendations\n" +
		"• Slice positioning advice\n" +
		"• Artifact prevention\n" +
		"• Parameter validation\n\n" +
		"What specific aspect would you like to know about?"
)

type adviceClass int

const (
	classRecommendation adviceClass = iota
	classSlicePositioning
	classArtifactPrevention
	classGeneric
)

// adviceKeywords is ordered by priority: a message matching several classes
// gets the first one listed here.
var adviceKeywords = []struct {
	class    adviceClass
	keywords []string
}{
	{classRecommendation, []string{"recommend", "suggestion", "optimal", "parameter", "settings"}},
	{classSlicePositioning, []string{"slice", "position", "overlay"}},
	{classArtifactPrevention, []string{"artifact", "quality"}},
}

func classify(message string) adviceClass {
	msg := strings.ToLower(message)
	for _, c := range adviceKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(msg, kw) {
				return c.class
			}
		}
	}
	return classGeneric
}

// localAdvice answers from the built-in reference table. It never fails;
// a recommendation question about an unknown sequence type degrades to the
// generic help text.
func localAdvice(message, sequenceType string) Result {
	switch classify(message) {
	case classRecommendation:
		if p, ok := LookupProfile(sequenceType); ok {
			return recommendationAdvice(sequenceType, p)
		}
	case classSlicePositioning:
		return Result{Response: slicePositioningAdvice}
	case classArtifactPrevention:
		return Result{Response: artifactPreventionAdvice}
	}
	return Result{Response: genericAdvice}
}

func recommendationAdvice(sequenceType string, p SequenceProfile) Result {
	tr, te := p.TR.Ideal, p.TE.Ideal
	sp := SuggestedParams{TR: &tr, TE: &te}
	if p.FlipAngle.Valid {
		flip := p.FlipAngle.Int
		sp.FlipAngle = &flip
	}

	var b strings.Builder
	fmt.Fprintf(&b, "For %s sequences, I recommend:\n", sequenceType)
	fmt.Fprintf(&b, "• TR: %s\n", p.TR.Format())
	fmt.Fprintf(&b, "• TE: %s\n", p.TE.Format())
	fmt.Fprintf(&b, "• Flip Angle: %s°\n\n", p.FormatFlipAngle())
	b.WriteString(p.Description)

	return Result{Response: b.String(), SuggestedParams: &sp}
}
