// Package textgensvc provides the Groq-backed text generator for the
// assistant.
package textgensvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core"
	"github.com/scanlab/scanlab/core/assistant"
)

// ErrDisabled is returned when no API key is configured; the assistant then
// falls through to its local advice.
var ErrDisabled = errors.New("text generation disabled: no API key configured")

const temperature = 0.7

type groqGenerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ assistant.Generator = (*groqGenerator)(nil)

func NewGroqGenerator(conf *core.Config) *groqGenerator {
	return &groqGenerator{
		apiKey:  conf.Groq.APIKey,
		baseURL: strings.TrimRight(conf.Groq.BaseURL, "/"),
		client:  &http.Client{Timeout: conf.Groq.Timeout},
	}
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

func (g *groqGenerator) Generate(ctx context.Context, p assistant.Prompt) (string, error) {
	if g.apiKey == "" {
		return "", ErrDisabled
	}

	body, err := json.Marshal(chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshaling chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating chat request")
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling chat completions API")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		data, _ := ioutil.ReadAll(res.Body)
		return "", errors.Errorf("chat completions API - status: %d - Body: %s", res.StatusCode, data)
	}

	var cr chatResponse
	if err = json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return "", errors.Wrap(err, "decoding chat response")
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("chat completions API returned no choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
