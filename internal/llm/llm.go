/*
Package llm wraps the external text-completion service.

The coordinator only depends on the Completer interface, so tests can
substitute a scripted fake and the service can never influence the registry
schema. The production implementation calls the Gemini API via the Google
GenAI SDK.
*/
package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the completion model used when config leaves it unset.
const DefaultModel = "gemini-2.5-flash"

// ServiceError represents a failure of the external completion service
// (network, auth, quota). It is surfaced per request; the process continues
// accepting input.
type ServiceError struct {
	Op  string // "complete", "complete_json"
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Completer is the contract the coordinator depends on.
//
// Complete returns free-form text for the prompt, optionally framed by a
// system context. CompleteJSON constrains the response to a JSON document.
// Both fail with *ServiceError and honor context cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt, systemContext string) (string, error)
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements Completer against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the given API key and model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete performs a plain text completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt, systemContext string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if systemContext != "" {
		config.SystemInstruction = genai.NewContentFromText(systemContext, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", &ServiceError{Op: "complete", Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ServiceError{Op: "complete", Err: fmt.Errorf("empty response")}
	}
	return text, nil
}

// CompleteJSON performs a completion constrained to a JSON response body.
func (c *GeminiClient) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", &ServiceError{Op: "complete_json", Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ServiceError{Op: "complete_json", Err: fmt.Errorf("empty response")}
	}
	return text, nil
}
