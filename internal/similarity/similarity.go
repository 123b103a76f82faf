/*
Package similarity scores user requests against handler descriptions and
selects the best reusable handler.

The combined score is the equal-weight mean of three measures computed over
normalized, whitespace-tokenized text:

  - Jaccard token overlap (symmetric, set-based)
  - keyword overlap (directional: share of the request's salient terms that
    appear in the description)
  - cosine similarity over term-frequency vectors (symmetric, bag-of-words)

Jaccard and cosine resist verbosity differences; the directional keyword
measure rewards a description that contains the request's salient terms even
when the two texts differ greatly in length.
*/
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"agentforge/internal/agent"
)

const (
	// DefaultThreshold is the minimum combined score for a handler to be
	// considered reusable.
	DefaultThreshold = 0.6

	// minKeywordLen filters short/function words out of the keyword set.
	// Tokens must be strictly longer than this to count as keywords.
	minKeywordLen = 3
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)

// Engine ranks handler records against a request string.
type Engine struct {
	threshold float64
}

// NewEngine creates an engine with the given reuse threshold.
// A non-positive threshold falls back to DefaultThreshold.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the configured reuse threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Score computes the combined similarity between a request and a handler
// description. The result is always in [0, 1]; an empty request scores 0
// against everything.
func Score(request, description string) float64 {
	reqTokens := Tokenize(request)
	if len(reqTokens) == 0 {
		return 0
	}
	descTokens := Tokenize(description)

	sum := jaccard(reqTokens, descTokens) +
		keywordOverlap(reqTokens, descTokens) +
		cosine(reqTokens, descTokens)
	return math.Min(sum/3.0, 1.0)
}

// Match is a scored handler record.
type Match struct {
	Record agent.Record
	Score  float64
}

// BestMatch scores every record and returns the highest-scoring one if its
// combined score meets the threshold. Ties go to the earliest-created
// record. The second return is false when no record qualifies, which
// signals that a new handler must be created.
func (e *Engine) BestMatch(request string, records []agent.Record) (Match, bool) {
	var best Match
	found := false

	for _, rec := range records {
		score := Score(request, rec.Description)
		if !found || score > best.Score ||
			(score == best.Score && rec.CreatedAt.Before(best.Record.CreatedAt)) {
			best = Match{Record: rec, Score: score}
			found = true
		}
	}

	if !found || best.Score < e.threshold {
		return Match{}, false
	}
	return best, true
}

// Scores returns every record with its combined score, sorted descending.
// Intended for diagnostics and verbose logging.
func (e *Engine) Scores(request string, records []agent.Record) []Match {
	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		matches = append(matches, Match{Record: rec, Score: Score(request, rec.Description)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Tokenize normalizes text (lowercase, punctuation stripped, whitespace
// collapsed) and splits it into tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlnum.ReplaceAllString(text, " ")
	return strings.Fields(text)
}

// jaccard computes |A ∩ B| / |A ∪ B| over token sets.
// Defined as 0 when both sides are empty.
func jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// keywordOverlap computes the fraction of the request's keywords that appear
// in the description's token set. Directional: swapping arguments changes
// the result.
func keywordOverlap(request, description []string) float64 {
	keywords := make(map[string]struct{})
	for _, tok := range request {
		if len(tok) > minKeywordLen {
			keywords[tok] = struct{}{}
		}
	}
	if len(keywords) == 0 {
		return 0
	}

	descSet := toSet(description)
	hits := 0
	for kw := range keywords {
		if _, ok := descSet[kw]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// cosine computes the cosine of the angle between the two texts'
// term-frequency vectors over their shared vocabulary. Zero when either
// vector has zero magnitude.
func cosine(a, b []string) float64 {
	freqA := toFreq(a)
	freqB := toFreq(b)

	var dot, magA, magB float64
	for tok, fa := range freqA {
		magA += float64(fa * fa)
		if fb, ok := freqB[tok]; ok {
			dot += float64(fa * fb)
		}
	}
	for _, fb := range freqB {
		magB += float64(fb * fb)
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func toFreq(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return freq
}
