package coordinator

import (
	"fmt"
	"strings"
	"unicode"

	"agentforge/internal/agent"
	"agentforge/internal/similarity"
)

// categoryKeywords drives the offline fallback categorizer. Listed in
// priority order; ties go to the earlier category.
var categoryKeywords = []struct {
	category agent.Category
	words    []string
}{
	{agent.CategoryCoding, []string{
		"function", "code", "program", "script", "debug", "compile",
		"implement", "algorithm", "python", "golang", "javascript",
		"bug", "api", "refactor", "class", "variable",
	}},
	{agent.CategoryMath, []string{
		"calculate", "math", "equation", "percent", "percentage",
		"solve", "arithmetic", "multiply", "divide", "fraction",
	}},
	{agent.CategoryCreative, []string{
		"story", "poem", "creative", "imagine", "fiction", "song",
		"character", "lyrics",
	}},
	{agent.CategoryAnalysis, []string{
		"analyze", "analysis", "data", "trends", "evaluate", "assess",
		"insights", "statistics", "metrics",
	}},
	{agent.CategoryWriting, []string{
		"essay", "email", "letter", "article", "blog", "summarize",
		"grammar", "proofread", "draft", "rewrite",
	}},
	{agent.CategoryResearch, []string{
		"explain", "research", "science", "theory", "describe",
		"overview", "definition", "compare", "learn",
	}},
}

// heuristicAnalysis categorizes a request without the completion service so
// matching keeps working offline. Content generation still needs the
// service; only the routing decision is covered here.
func heuristicAnalysis(request string) taskAnalysis {
	category := heuristicCategory(request)
	return taskAnalysis{
		Category:    category,
		Description: heuristicDescription(category, request),
	}
}

func heuristicCategory(request string) agent.Category {
	tokens := similarity.Tokenize(request)
	tokenSet := make(map[string]struct{}, len(tokens))
	numeric := 0
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
		if isNumeric(tok) {
			numeric++
		}
	}

	best := agent.CategoryOther
	bestHits := 0
	for _, entry := range categoryKeywords {
		hits := 0
		for _, word := range entry.words {
			if _, ok := tokenSet[word]; ok {
				hits++
			}
		}
		// Numeric tokens are a strong arithmetic signal.
		if entry.category == agent.CategoryMath {
			hits += numeric
		}
		if hits > bestHits {
			best = entry.category
			bestHits = hits
		}
	}
	return best
}

// heuristicDescription builds the similarity target for a fallback handler.
// Including the request's own words keeps near-duplicate requests matching.
func heuristicDescription(category agent.Category, request string) string {
	return fmt.Sprintf("Specialized %s assistant for requests like: %s",
		category, truncate(request, 100))
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(tok) > 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
