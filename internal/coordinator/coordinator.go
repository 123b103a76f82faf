/*
Package coordinator owns the per-request decision flow: categorize the
request, search the registry for a similar enough handler, reuse or create
one, then delegate the request to the completion service framed by the
chosen handler's profile.

Every request moves through a fixed set of states:

	received -> categorizing -> searching -> (reusing | creating) -> delegating -> completed

with "failed" reachable from any state on an unrecoverable service or
storage error. Persistence always happens before delegation, so a crash
during the external call never leaves the registry out of sync with the
decision that was made.
*/
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentforge/internal/agent"
	"agentforge/internal/history"
	"agentforge/internal/llm"
	"agentforge/internal/registry"
	"agentforge/internal/similarity"
)

// State is a coordinator request-processing state.
type State string

const (
	StateReceived     State = "received"
	StateCategorizing State = "categorizing"
	StateSearching    State = "searching"
	StateReusing      State = "reusing"
	StateCreating     State = "creating"
	StateDelegating   State = "delegating"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Master coordinates handler selection and delegation for user requests.
type Master struct {
	registry  *registry.Registry
	engine    *similarity.Engine
	completer llm.Completer
	tracker   *history.Tracker
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a coordinator. The tracker may be nil when analytics are
// disabled; everything else is required.
func New(reg *registry.Registry, engine *similarity.Engine, completer llm.Completer, tracker *history.Tracker, logger *zap.Logger) *Master {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Master{
		registry:  reg,
		engine:    engine,
		completer: completer,
		tracker:   tracker,
		logger:    logger,
		now:       time.Now,
	}
}

// Result describes how a request was routed.
type Result struct {
	Response string
	Handler  agent.Record
	Decision history.Decision
	Score    float64
}

// taskAnalysis is the categorization outcome, either from the completion
// service or from the local heuristic fallback.
type taskAnalysis struct {
	Category    agent.Category
	Description string
}

// categorizeResponse is the JSON shape requested from the completion service.
type categorizeResponse struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Handle is the per-request error boundary: it converts every failure into
// a user-facing message plus a log entry so no request can terminate the
// read loop.
func (m *Master) Handle(ctx context.Context, request string) string {
	result, err := m.Process(ctx, request)
	if err == nil {
		return result.Response
	}

	var serviceErr *llm.ServiceError
	var storageErr *registry.StorageError
	switch {
	case errors.As(err, &serviceErr):
		m.logger.Error("completion service failed", zap.Error(err))
		return "Sorry, I couldn't reach the completion service. Please try again in a moment."
	case errors.As(err, &storageErr):
		m.logger.Error("registry storage failed", zap.Error(err))
		return "Sorry, I couldn't access the handler registry. Please check the storage file and try again."
	default:
		m.logger.Error("request failed", zap.Error(err))
		return fmt.Sprintf("Sorry, something went wrong while processing your request: %v", err)
	}
}

// Process runs the full state machine for one request and returns the
// delegated response along with the routing decision.
func (m *Master) Process(ctx context.Context, request string) (Result, error) {
	flow := m.newFlow()
	request = strings.TrimSpace(request)
	if request == "" {
		flow.to(StateFailed)
		return Result{}, fmt.Errorf("empty request")
	}

	flow.to(StateCategorizing)
	analysis := m.categorize(ctx, request)

	flow.to(StateSearching)
	records := m.registry.All()
	match, matched := m.engine.BestMatch(request, records)
	m.trackSearch(request, len(records), match, matched)

	var result Result
	if matched {
		flow.to(StateReusing)
		reused, err := m.reuse(match)
		if err != nil {
			if !errors.Is(err, registry.ErrNotFound) {
				flow.to(StateFailed)
				return Result{}, err
			}
			// A touch on an id we just looked up means the registry
			// changed underneath us. Degrade to creation.
			m.logger.Warn("matched handler vanished before touch, creating instead",
				zap.String("id", match.Record.ID))
			matched = false
		} else {
			result = reused
		}
	}
	if !matched {
		flow.to(StateCreating)
		created, err := m.create(analysis)
		if err != nil {
			flow.to(StateFailed)
			return Result{}, err
		}
		result = created
	}
	m.trackSelection(request, result)

	flow.to(StateDelegating)
	response, err := m.delegate(ctx, result.Handler, request)
	if err != nil {
		flow.to(StateFailed)
		return Result{}, err
	}
	result.Response = response

	flow.to(StateCompleted)
	return result, nil
}

// categorize classifies the request and synthesizes a specialization
// description. A completion-service failure is not fatal: the local
// heuristic categorizer keeps matching usable offline.
func (m *Master) categorize(ctx context.Context, request string) taskAnalysis {
	raw, err := m.completer.CompleteJSON(ctx, categorizePrompt(request))
	if err != nil {
		m.logger.Warn("categorization service unavailable, using heuristic", zap.Error(err))
		return heuristicAnalysis(request)
	}

	var parsed categorizeResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		m.logger.Warn("categorization response unparseable, using heuristic", zap.Error(err))
		return heuristicAnalysis(request)
	}

	analysis := taskAnalysis{
		Category:    agent.ParseCategory(parsed.Category),
		Description: strings.TrimSpace(parsed.Description),
	}
	if analysis.Description == "" {
		analysis.Description = heuristicDescription(analysis.Category, request)
	}
	m.logger.Debug("request categorized",
		zap.String("category", string(analysis.Category)),
		zap.String("description", analysis.Description))
	return analysis
}

func (m *Master) reuse(match similarity.Match) (Result, error) {
	if err := m.registry.Touch(match.Record.ID); err != nil {
		return Result{}, err
	}
	rec, err := m.registry.Get(match.Record.ID)
	if err != nil {
		return Result{}, err
	}
	m.logger.Info("reusing handler",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.Float64("score", match.Score))
	return Result{Handler: rec, Decision: history.DecisionReused, Score: match.Score}, nil
}

func (m *Master) create(analysis taskAnalysis) (Result, error) {
	rec := agent.New(
		agent.NameForCategory(analysis.Category),
		analysis.Description,
		systemPromptFor(analysis),
		analysis.Category,
		m.now(),
	)
	if err := m.registry.Add(rec); err != nil {
		return Result{}, err
	}
	// First use immediately follows creation.
	if err := m.registry.Touch(rec.ID); err != nil {
		return Result{}, err
	}
	rec, err := m.registry.Get(rec.ID)
	if err != nil {
		return Result{}, err
	}
	m.logger.Info("created handler",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("category", string(rec.Category)))
	return Result{Handler: rec, Decision: history.DecisionCreated}, nil
}

// delegate forwards the request to the completion service framed by the
// handler's profile. The response is returned unmodified aside from
// whitespace trimming.
func (m *Master) delegate(ctx context.Context, rec agent.Record, request string) (string, error) {
	response, err := m.completer.Complete(ctx, delegationPrompt(rec, request), rec.Prompt())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (m *Master) trackSearch(request string, candidates int, match similarity.Match, matched bool) {
	if m.tracker == nil {
		return
	}
	m.tracker.TrackSearch(history.SearchEvent{
		QueryHash:  history.HashQuery(request),
		Candidates: candidates,
		BestScore:  match.Score,
		Matched:    matched,
		Timestamp:  m.now(),
	})
}

func (m *Master) trackSelection(request string, result Result) {
	if m.tracker == nil {
		return
	}
	m.tracker.TrackSelection(history.SelectionEvent{
		HandlerID: result.Handler.ID,
		Decision:  result.Decision,
		Score:     result.Score,
		QueryHash: history.HashQuery(request),
		Timestamp: m.now(),
	})
}

// flow tracks one request's state transitions for logging.
type flow struct {
	state  State
	logger *zap.Logger
}

func (m *Master) newFlow() *flow {
	return &flow{state: StateReceived, logger: m.logger}
}

func (f *flow) to(next State) {
	f.logger.Debug("state transition",
		zap.String("from", string(f.state)),
		zap.String("to", string(next)))
	f.state = next
}
