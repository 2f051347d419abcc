// SPDX-License-Identifier: GPL-3.0-or-later
package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mailwatch/mailwatch/domain"
)

const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 500
	pingMaxTokens       = 5
)

const systemPrompt = `You are an email classification assistant. Decide whether an email was produced by an automated system (auto-responders, applicant tracking systems, notification pipelines, bulk mailers) or written by a human being.

Respond with a single JSON object and nothing else:
{
  "classification": "system_generated" or "human_generated",
  "confidence": integer between 0 and 100,
  "reasoning": short explanation of the decision,
  "system_indicators": list of observed signs of automated origin,
  "human_indicators": list of observed signs of human origin
}`

type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI builds a client for an OpenAI-compatible chat completion
// endpoint. No request is sent until the first classification; use
// TestConnection to probe the endpoint explicitly.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	return &OpenAI{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// verdict is the JSON object the model is instructed to answer with.
type verdict struct {
	Classification   string   `json:"classification"`
	Confidence       *int     `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SystemIndicators []string `json:"system_indicators"`
	HumanIndicators  []string `json:"human_indicators"`
}

// Classify asks the model for a verdict on a single message. The three
// fields go into the prompt verbatim.
func (o *OpenAI) Classify(from, subject, body string) (*domain.Classification, error) {
	request := &chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: classifyPrompt(from, subject, body)},
		},
		Temperature:    classifyTemperature,
		MaxTokens:      classifyMaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := o.complete(request)
	if err != nil {
		return nil, err
	}

	return parseVerdict(content)
}

// TestConnection sends a minimal round trip. A reachable endpoint that
// answers without content yields false without an error.
func (o *OpenAI) TestConnection() (bool, error) {
	request := &chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "user", Content: "Reply with the single word: ok"},
		},
		MaxTokens: pingMaxTokens,
	}

	content, err := o.complete(request)
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(content) != "", nil
}

func classifyPrompt(from, subject, body string) string {
	return fmt.Sprintf("Classify the following email.\n\nFrom: %s\nSubject: %s\n\nBody:\n%s", from, subject, body)
}

// complete runs one chat completion and returns the content of the first
// choice. An answer without choices is not an error here, callers decide
// what an empty content means.
func (o *OpenAI) complete(request *chatRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("could not serialize chat request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not reach chat endpoint: %w: %w", domain.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read chat response: %w: %w", domain.ErrClassifierUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &apiErrorResponse{}
		if json.Unmarshal(respBody, apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("unexpected status %d from chat endpoint: %s: %w", resp.StatusCode, apiErr.Error.Message, domain.ErrClassifierUnavailable)
		}
		return "", fmt.Errorf("unexpected status %d from chat endpoint: %w", resp.StatusCode, domain.ErrClassifierUnavailable)
	}

	chatResp := &chatResponse{}
	err = json.Unmarshal(respBody, chatResp)
	if err != nil {
		return "", fmt.Errorf("could not deserialize chat response: %w: %w", domain.ErrMalformedResponse, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", nil
	}

	return chatResp.Choices[0].Message.Content, nil
}

func parseVerdict(content string) (*domain.Classification, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("chat response contained no verdict: %w", domain.ErrMalformedResponse)
	}

	v := &verdict{}
	err := json.Unmarshal([]byte(content), v)
	if err != nil {
		return nil, fmt.Errorf("could not deserialize verdict: %w: %w", domain.ErrMalformedResponse, err)
	}

	label, err := parseLabel(v.Classification)
	if err != nil {
		return nil, err
	}

	if v.Confidence == nil || *v.Confidence < 0 || *v.Confidence > 100 {
		return nil, fmt.Errorf("verdict confidence must be an integer between 0 and 100: %w", domain.ErrMalformedResponse)
	}

	return &domain.Classification{
		Label:            label,
		Confidence:       *v.Confidence,
		Reasoning:        v.Reasoning,
		SystemIndicators: v.SystemIndicators,
		HumanIndicators:  v.HumanIndicators,
	}, nil
}

func parseLabel(raw string) (domain.Label, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-") {
	case string(domain.SystemGenerated):
		return domain.SystemGenerated, nil
	case string(domain.HumanGenerated):
		return domain.HumanGenerated, nil
	}

	return "", fmt.Errorf("unknown classification %q in verdict: %w", raw, domain.ErrMalformedResponse)
}
