package coordinator

import (
	"strings"
	"testing"

	"agentforge/internal/agent"
)

func TestHeuristicCategory(t *testing.T) {
	cases := []struct {
		request string
		want    agent.Category
	}{
		{"Write a function to reverse a string", agent.CategoryCoding},
		{"Debug this python script for me", agent.CategoryCoding},
		{"What is 15% of 240?", agent.CategoryMath},
		{"Solve the equation 2x + 4 = 10", agent.CategoryMath},
		{"Explain quantum computing", agent.CategoryResearch},
		{"Write me a poem about the sea", agent.CategoryCreative},
		{"Analyze the sales trends in this data", agent.CategoryAnalysis},
		{"Proofread this email draft", agent.CategoryWriting},
		{"hello there", agent.CategoryOther},
	}

	for _, tc := range cases {
		t.Run(tc.request, func(t *testing.T) {
			if got := heuristicCategory(tc.request); got != tc.want {
				t.Errorf("heuristicCategory(%q) = %s, want %s", tc.request, got, tc.want)
			}
		})
	}
}

func TestHeuristicAnalysis_DescriptionCarriesRequestTerms(t *testing.T) {
	analysis := heuristicAnalysis("Write a function to reverse a string")
	if analysis.Category != agent.CategoryCoding {
		t.Errorf("category = %s, want coding", analysis.Category)
	}
	if !strings.Contains(analysis.Description, "reverse a string") {
		t.Errorf("description should carry the request terms for matching, got %q", analysis.Description)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := truncate(long, 100)
	if len(got) > 100 {
		t.Errorf("truncated length = %d, want <= 100", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected ellipsis suffix")
	}
	if truncate("short", 100) != "short" {
		t.Error("short strings must pass through unchanged")
	}
}
