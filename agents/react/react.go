/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package react

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/repoqa/agents/agenttrace"
	"chainguard.dev/repoqa/agents/metrics"
	"chainguard.dev/repoqa/agents/model"
	"chainguard.dev/repoqa/agents/result"
	"chainguard.dev/repoqa/agents/toolcall"
)

// DefaultMaxIterations bounds the steps of one query.
const DefaultMaxIterations = 10

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// Status is how a query terminated.
type Status string

const (
	StatusFinal           Status = "final"
	StatusBudgetExhausted Status = "budget_exhausted"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

// Input is one question plus the context that goes into the first prompt.
type Input struct {
	Question          string
	Repositories      []string
	RepositoryContext string
}

// Outcome describes a finished query.
type Outcome struct {
	Answer string
	Status Status
	// Steps counts dispatched tool calls and corrective nudges.
	Steps int
	// Turns counts model completions.
	Turns        int
	Conversation *Conversation
	States       []State
}

// Finished reports whether the model produced a final answer.
func (o *Outcome) Finished() bool { return o.Status == StatusFinal }

// Option configures a Loop.
type Option func(*Loop) error

// WithMaxIterations bounds the steps of one query.
func WithMaxIterations(n int) Option {
	return func(l *Loop) error {
		if n <= 0 {
			return fmt.Errorf("max iterations must be positive, got %d", n)
		}
		l.maxIterations = n
		return nil
	}
}

// WithObservationLimit bounds the characters of one observation.
func WithObservationLimit(n int) Option {
	return func(l *Loop) error {
		if n <= 0 {
			return fmt.Errorf("observation limit must be positive, got %d", n)
		}
		l.observationLimit = n
		return nil
	}
}

// WithMetrics overrides the GenAI metrics recorder.
func WithMetrics(m *metrics.GenAI) Option {
	return func(l *Loop) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		l.metrics = m
		return nil
	}
}

// Loop answers questions by alternating model turns and tool calls. A Loop
// holds no per-query state and may serve concurrent queries.
type Loop struct {
	model            model.Model
	tools            *toolcall.Registry
	system           string
	maxIterations    int
	observationLimit int
	metrics          *metrics.GenAI
}

// New creates a Loop over m and tools.
func New(m model.Model, tools *toolcall.Registry, opts ...Option) (*Loop, error) {
	if m == nil {
		return nil, errors.New("model cannot be nil")
	}
	if tools == nil {
		return nil, errors.New("tool registry cannot be nil")
	}
	system, err := systemPrompt(tools.Definitions())
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}
	l := &Loop{
		model:            m,
		tools:            tools,
		system:           system,
		maxIterations:    DefaultMaxIterations,
		observationLimit: DefaultObservationLimit,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if l.metrics == nil {
		l.metrics = metrics.NewGenAI(metrics.MeterName)
		l.metrics.SetAttributeEnricher(metrics.QueryEnricher)
	}
	return l, nil
}

// MaxIterations is the step budget of one query.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Run answers one question. Budget exhaustion is not an error. Cancellation
// and model failures return a partial Outcome together with the error.
func (l *Loop) Run(ctx context.Context, in Input) (*Outcome, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	user, err := userPrompt(in)
	if err != nil {
		return nil, fmt.Errorf("building user prompt: %w", err)
	}
	machine, err := newMachine()
	if err != nil {
		return nil, err
	}

	trace := agenttrace.StartTrace(ctx, in.Question)
	ctx = trace.Context()

	q := &query{
		Loop:  l,
		in:    in,
		trace: trace,
		conv:  newConversation(l.system, user),
		sm:    start(machine),
		log:   clog.FromContext(ctx).With("model", l.model.Name()),
	}
	defer q.sm.stop()

	q.log.Info("Starting query", "repositories", len(in.Repositories), "max_iterations", l.maxIterations)
	q.sm.send(eventStart)
	return q.loop(ctx)
}

// query is the state of one Run.
type query struct {
	*Loop
	in      Input
	trace   *agenttrace.Trace
	conv    *Conversation
	sm      *driver
	log     *clog.Logger
	turns   int
	lastObs string
}

func (q *query) loop(ctx context.Context) (*Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return q.finish(ctx, StatusCancelled, "", err)
		}

		q.turns++
		q.metrics.RecordIteration(ctx, q.model.Name())
		reply, err := q.model.Complete(ctx, q.conv.request(q.tools.Definitions()))
		if err != nil {
			if ctx.Err() != nil {
				return q.finish(ctx, StatusCancelled, "", ctx.Err())
			}
			return q.finish(ctx, StatusFailed, "", fmt.Errorf("model turn %d: %w", q.turns, err))
		}
		if reply.Usage.PromptTokens > 0 || reply.Usage.CompletionTokens > 0 {
			q.metrics.RecordTokens(ctx, q.model.Name(), reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
			q.trace.RecordTokenUsage(q.model.Name(), reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
		}

		var (
			done bool
			out  *Outcome
		)
		switch {
		case len(reply.ToolCalls) > 0:
			done, out, err = q.dispatchNative(ctx, reply)
		default:
			done, out, err = q.handleText(ctx, reply.Text)
		}
		if done {
			return out, err
		}
		if q.sm.run.steps >= q.maxIterations {
			return q.finish(ctx, StatusBudgetExhausted, budgetAnswer(q.maxIterations, q.lastObs), nil)
		}
		q.sm.send(eventContinue)
	}
}

// dispatchNative runs the calls of one reply in order. It stops early when
// the budget runs out or the query is cancelled.
func (q *query) dispatchNative(ctx context.Context, reply *model.Reply) (bool, *Outcome, error) {
	q.conv.append(model.Message{Role: model.RoleAssistant, Content: reply.Text, ToolCalls: reply.ToolCalls})
	q.sm.send(eventToolCalls)

	for i, call := range reply.ToolCalls {
		if i > 0 {
			if q.sm.run.steps >= q.maxIterations {
				out, err := q.finish(ctx, StatusBudgetExhausted, budgetAnswer(q.maxIterations, q.lastObs), nil)
				return true, out, err
			}
			q.sm.send(eventNextCall)
		}
		if err := ctx.Err(); err != nil {
			out, err := q.finish(ctx, StatusCancelled, "", err)
			return true, out, err
		}
		obs := q.dispatch(ctx, call)
		q.conv.append(model.Message{Role: model.RoleTool, Content: obs, ToolCallID: call.ID, ToolName: call.Name})
		q.sm.send(eventObserved)
	}
	return false, nil, nil
}

// handleText interprets a reply without native tool calls: a final answer
// marker, an inline action, plain text as the answer, or nothing at all.
func (q *query) handleText(ctx context.Context, text string) (bool, *Outcome, error) {
	if answer, ok := result.FinalAnswer(text); ok {
		out, err := q.finish(ctx, StatusFinal, answer, nil)
		return true, out, err
	}

	if action, ok := result.ExtractAction(text); ok {
		q.conv.append(model.Message{Role: model.RoleAssistant, Content: text})
		q.sm.send(eventToolCalls)
		if err := ctx.Err(); err != nil {
			out, err := q.finish(ctx, StatusCancelled, "", err)
			return true, out, err
		}
		obs := q.dispatch(ctx, toolcall.ToolCall{
			ID:   fmt.Sprintf("call_%d", q.turns),
			Name: action.Tool,
			Args: action.Parameters,
		})
		q.conv.append(model.Message{Role: model.RoleUser, Content: observationMessage(obs)})
		q.sm.send(eventObserved)
		return false, nil, nil
	}

	if answer := strings.TrimSpace(text); answer != "" {
		out, err := q.finish(ctx, StatusFinal, answer, nil)
		return true, out, err
	}

	q.log.Warn("Model reply had neither text nor tool calls", "turn", q.turns)
	q.conv.append(model.Message{Role: model.RoleUser, Content: nudgeMessage(q.in.Repositories)})
	q.sm.send(eventNudge)
	return false, nil, nil
}

// dispatch runs one call and returns its truncated observation.
func (q *query) dispatch(ctx context.Context, call toolcall.ToolCall) string {
	obs, err := q.tools.Dispatch(ctx, call, q.trace)
	var mce *toolcall.MalformedCallError
	q.metrics.RecordToolCall(ctx, q.model.Name(), call.Name, !errors.As(err, &mce))

	rendered := truncate(renderObservation(obs), q.observationLimit)
	q.lastObs = rendered
	return rendered
}

func (q *query) finish(ctx context.Context, status Status, answer string, err error) (*Outcome, error) {
	if status == StatusFinal {
		q.sm.send(eventAnswer)
	} else {
		q.sm.send(eventStop)
	}

	out := &Outcome{
		Answer:       answer,
		Status:       status,
		Steps:        q.sm.run.steps,
		Turns:        q.turns,
		Conversation: q.conv,
		States:       append([]State(nil), q.sm.path...),
	}

	q.trace.Complete(answer, string(status), err)
	q.metrics.RecordOutcome(ctx, q.model.Name(), string(status))

	log := q.log.With("status", status, "steps", out.Steps, "turns", out.Turns)
	if err != nil {
		log.Error("Query failed", "error", err)
	} else {
		log.Info("Query completed")
	}
	return out, err
}
