package question

import (
	"context"
	"fmt"
	"strings"
)

// ReplyType controls how a choice question is presented.
type ReplyType string

const (
	// ReplySimple asks in plain text and expects a typed answer.
	ReplySimple ReplyType = "simple"
	// ReplyKeyboard shows a one-time reply keyboard with the options.
	ReplyKeyboard ReplyType = "keyboard"
	// ReplyInline shows inline buttons under the question message.
	ReplyInline ReplyType = "inline"
)

// Option is one selectable choice: the label shown to the user and the value
// stored as the answer.
type Option struct {
	Label string
	Value any
}

// Options builds choices where each label is also its value.
func Options(labels ...string) []Option {
	opts := make([]Option, len(labels))
	for i, l := range labels {
		opts[i] = Option{Label: l, Value: l}
	}
	return opts
}

// Choice asks the user to pick one of a fixed set of options.
type Choice struct {
	base

	// ChoiceOptions are the selectable options, in display order. When
	// ChoicesFunc is set it takes precedence and is consulted on every ask.
	ChoiceOptions []Option
	ChoicesFunc   func() []Option

	// Reply selects the presentation. Defaults to ReplySimple.
	Reply ReplyType
}

// NewChoice creates a choice question with a fixed option set.
func NewChoice(text string, options []Option) *Choice {
	return &Choice{base: base{Text: text}, ChoiceOptions: options}
}

func (q *Choice) options() []Option {
	if q.ChoicesFunc != nil {
		return q.ChoicesFunc()
	}
	return q.ChoiceOptions
}

// Ask builds the prompt, attaching a keyboard when the reply type wants one.
func (q *Choice) Ask(ctx context.Context, ex *Exchange) (*Prompt, error) {
	return choicePrompt(q.Text, q.options(), q.Reply, ex.Param), nil
}

// Response extracts the picked option label from the reply.
func (q *Choice) Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error) {
	return choiceResponse(ctx, ex, ans, q.Reply)
}

// Validate maps the picked label onto its option value.
func (q *Choice) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, func(response any) (any, error) {
		return pickOption(q.options(), response, q.ErrorText)
	})
}

func (q *Choice) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.ChoiceError
	}
}

// choicePrompt builds the prompt for a choice question. Inline button data
// is prefixed with the parameter name so the transport can route presses
// back to the right conversation step.
func choicePrompt(text string, options []Option, reply ReplyType, param string) *Prompt {
	p := &Prompt{Text: text}
	switch reply {
	case ReplyKeyboard:
		for _, opt := range options {
			p.Keyboard = append(p.Keyboard, opt.Label)
		}
	case ReplyInline:
		for _, opt := range options {
			p.Inline = append(p.Inline, InlineButton{
				Label: opt.Label,
				Data:  param + "_" + opt.Label,
			})
		}
	}
	return p
}

// choiceResponse extracts the picked label. Keyboard replies clear the
// keyboard, inline replies acknowledge the button press.
func choiceResponse(ctx context.Context, ex *Exchange, ans *Answer, reply ReplyType) (any, error) {
	switch reply {
	case ReplyKeyboard:
		if ex.RemoveKeyboard != nil {
			if err := ex.RemoveKeyboard(ctx); err != nil {
				return nil, fmt.Errorf("removing keyboard: %w", err)
			}
		}
		return ans.Text, nil
	case ReplyInline:
		if ans.CallbackID != "" && ex.AnswerCallback != nil {
			if err := ex.AnswerCallback(ctx, ans.CallbackID); err != nil {
				return nil, fmt.Errorf("answering callback query: %w", err)
			}
		}
		return strings.TrimPrefix(ans.CallbackData, ex.Param+"_"), nil
	default:
		return ans.Text, nil
	}
}

// pickOption resolves a label to its option value.
func pickOption(options []Option, response any, errorText string) (any, error) {
	label := strings.TrimSpace(fmt.Sprint(response))
	for _, opt := range options {
		if opt.Label == label {
			return opt.Value, nil
		}
	}
	return nil, Invalid(errorText)
}
