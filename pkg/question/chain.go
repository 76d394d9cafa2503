package question

import (
	"context"
	"errors"
	"fmt"
)

// Step is one named question in a chain. The answer is stored under Param.
type Step struct {
	Param    string
	Question Question
}

// Chain is an ordered sequence of questions forming one conversation. It is
// immutable after construction and shared across conversations.
type Chain struct {
	steps []Step
}

// configChecker is implemented by questions that can reject their own
// configuration at build time.
type configChecker interface {
	checkConfig() error
}

// NewChain builds a chain from the given steps, applying the configured
// defaults to every built-in question that does not set its own texts.
func NewChain(defaults Defaults, steps ...Step) (*Chain, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("a chain needs at least one question")
	}

	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Param == "" {
			return nil, fmt.Errorf("every question needs a parameter name")
		}
		if _, dup := seen[s.Param]; dup {
			return nil, fmt.Errorf("duplicate question parameter %q", s.Param)
		}
		seen[s.Param] = struct{}{}

		if s.Question == nil {
			return nil, fmt.Errorf("question for parameter %q is nil", s.Param)
		}
		if d, ok := s.Question.(defaulter); ok {
			d.applyDefaults(defaults)
		}
		if c, ok := s.Question.(configChecker); ok {
			if err := c.checkConfig(); err != nil {
				return nil, fmt.Errorf("question %q: %w", s.Param, err)
			}
		}
	}

	return &Chain{steps: steps}, nil
}

// Len returns the number of questions in the chain.
func (c *Chain) Len() int {
	return len(c.steps)
}

// Params returns the parameter names in chain order.
func (c *Chain) Params() []string {
	params := make([]string, len(c.steps))
	for i, s := range c.steps {
		params[i] = s.Param
	}
	return params
}

// Conversation is the per-chat progress through a chain. It advances forward
// only; a rejected answer re-asks the current question without moving.
type Conversation struct {
	// Step indexes the question currently awaiting an answer.
	Step int `json:"step"`

	// Answers holds the validated answers collected so far, by parameter.
	Answers map[string]any `json:"answers"`

	// Scratch is shared question storage for the conversation.
	Scratch map[string]any `json:"scratch"`
}

// NewConversation starts a conversation at the first question.
func NewConversation() *Conversation {
	return &Conversation{
		Answers: make(map[string]any),
		Scratch: make(map[string]any),
	}
}

// Result is the outcome of handling one user reply.
type Result struct {
	// Done reports that every question has been answered. Answers are in
	// the conversation.
	Done bool

	// Prompt is the next message to send: the following question, or the
	// current one again after a rejection. Nil when Done.
	Prompt *Prompt

	// ErrorText is the rejection text to send before re-asking. Empty when
	// the answer was accepted.
	ErrorText string
}

// Ask builds the prompt for the conversation's current question.
func (c *Chain) Ask(ctx context.Context, ex *Exchange, conv *Conversation) (*Prompt, error) {
	if conv.Step < 0 || conv.Step >= len(c.steps) {
		return nil, fmt.Errorf("conversation step %d out of range", conv.Step)
	}
	step := c.steps[conv.Step]
	ex.Param = step.Param
	return step.Question.Ask(ctx, ex)
}

// Answer handles one user reply for the conversation's current question.
// Accepted answers advance the conversation and return the next prompt, or
// Done once the chain is exhausted. Rejected answers return the rejection
// text and the same question's prompt again.
func (c *Chain) Answer(ctx context.Context, ex *Exchange, conv *Conversation, ans *Answer) (*Result, error) {
	if conv.Step < 0 || conv.Step >= len(c.steps) {
		return nil, fmt.Errorf("conversation step %d out of range", conv.Step)
	}
	step := c.steps[conv.Step]
	ex.Param = step.Param

	value, err := c.resolve(ctx, ex, step.Question, ans)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			prompt, askErr := step.Question.Ask(ctx, ex)
			if askErr != nil {
				return nil, askErr
			}
			return &Result{ErrorText: verr.Text, Prompt: prompt}, nil
		}
		return nil, err
	}

	conv.Answers[step.Param] = value
	conv.Step++

	if conv.Step >= len(c.steps) {
		return &Result{Done: true}, nil
	}

	prompt, err := c.Ask(ctx, ex, conv)
	if err != nil {
		return nil, err
	}
	return &Result{Prompt: prompt}, nil
}

// resolve extracts and validates one reply.
func (c *Chain) resolve(ctx context.Context, ex *Exchange, q Question, ans *Answer) (any, error) {
	response, err := q.Response(ctx, ex, ans)
	if err != nil {
		return nil, err
	}
	return q.Validate(ctx, ex, response)
}
