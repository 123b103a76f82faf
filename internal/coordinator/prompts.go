package coordinator

import (
	"fmt"
	"strings"

	"agentforge/internal/agent"
)

// categorizePrompt asks the completion service to classify a request into
// one category from the closed set and synthesize a short specialization
// description for the handler that should own it.
func categorizePrompt(request string) string {
	categories := make([]string, len(agent.Categories))
	for i, c := range agent.Categories {
		categories[i] = string(c)
	}
	return fmt.Sprintf(`Analyze this user request and decide what kind of specialized assistant should handle it.

User request: %s

Respond with a JSON object containing exactly these fields:
1. "category": one of %s
2. "description": a one-sentence description of the assistant's specialization (e.g. "Python programming assistant for string manipulation tasks")

Respond only with valid JSON.`, request, strings.Join(categories, ", "))
}

// delegationPrompt builds the completion request for an already-selected
// handler: the handler's specialization as framing context plus the
// original, unmodified user request.
func delegationPrompt(rec agent.Record, request string) string {
	return fmt.Sprintf(`You are %s and you specialize in: %s

Please handle this user request with your specialized expertise:

User request: %s

Provide a helpful, detailed response based on your specialization.`, rec.Name, rec.Description, request)
}

// systemPromptFor synthesizes the stored system prompt for a new handler.
func systemPromptFor(analysis taskAnalysis) string {
	return fmt.Sprintf("You are a highly specialized assistant for %s tasks. Your specialization: %s",
		analysis.Category, analysis.Description)
}
