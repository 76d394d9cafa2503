// Package question implements multi-step conversational prompts. A question
// knows how to ask itself, extract the user's reply and validate it; a Chain
// strings questions together into a forward-only conversation whose answers
// are handed to the action handler on completion.
//
// Question instances hold configuration only and are shared across every
// conversation that uses them. All per-conversation data lives in the
// Conversation passed to the chain.
package question

import (
	"context"

	"toribot/pkg/datasource"
)

// Question is a single conversational prompt. Implementations must be
// stateless with respect to conversations; per-conversation data belongs in
// the Exchange scratch.
type Question interface {
	// Ask builds the prompt to send to the user.
	Ask(ctx context.Context, ex *Exchange) (*Prompt, error)

	// Response extracts the raw response value from the user's reply.
	Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error)

	// Validate checks the raw response and converts it to the final answer
	// value. Rejections are reported as *ValidationError; any other error
	// aborts the conversation.
	Validate(ctx context.Context, ex *Exchange, response any) (any, error)
}

// Exchange carries the per-conversation collaborators a question may need.
// The transport layer fills it in before every question call.
type Exchange struct {
	// ChatID identifies the conversation's chat.
	ChatID int64

	// Param is the parameter name the current question answers.
	Param string

	// Scratch is per-conversation storage shared between a question's Ask
	// and Validate calls. Dynamic choices cache their option set here.
	Scratch map[string]any

	// Sources are the bot's connected datasources, keyed by name.
	Sources map[string]datasource.DataSource

	// RemoveKeyboard clears a previously shown reply keyboard.
	RemoveKeyboard func(ctx context.Context) error

	// AnswerCallback acknowledges an inline button press.
	AnswerCallback func(ctx context.Context, callbackID string) error

	// Download fetches a Telegram file to a local temporary path. It must
	// reject files larger than maxSize.
	Download func(ctx context.Context, fileID string, maxSize int64) (string, error)
}

// Prompt is the renderable form of a question, normalized away from any
// particular chat protocol. At most one of Keyboard and Inline is set.
type Prompt struct {
	// Text is the question text.
	Text string

	// Keyboard lists reply-keyboard options, one button per row.
	Keyboard []string

	// Inline lists inline-keyboard buttons, one per row.
	Inline []InlineButton
}

// InlineButton is one inline-keyboard button.
type InlineButton struct {
	Label string
	Data  string
}

// Answer is the user's reply to a prompt, normalized away from the
// transport's update type.
type Answer struct {
	// Text is the message text, when the reply was a text message.
	Text string

	// CallbackID and CallbackData are set when the reply was an inline
	// button press.
	CallbackID   string
	CallbackData string

	// Document is set when the reply carried a file attachment.
	Document *Attachment

	// Photo is set when the reply carried an image.
	Photo *Attachment
}

// Attachment is file metadata from a reply. The content itself is fetched
// lazily through Exchange.Download.
type Attachment struct {
	FileID   string
	FileName string
	MIMEType string
	FileSize int64
}

// ValidationError is a rejection of the user's response. Its text is sent to
// the user and the question is asked again; it never aborts the conversation.
type ValidationError struct {
	Text string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Text
}

// Invalid builds a ValidationError with the given user-facing text.
func Invalid(text string) error {
	return &ValidationError{Text: text}
}

// Defaults carries the configured fallback texts and value sets applied to
// questions that do not set their own. NewChain applies them.
type Defaults struct {
	BoolTrueValues     []string
	BoolFalseValues    []string
	BoolError          string
	IntegerError       string
	ChoiceError        string
	DynamicChoiceError string
	DatetimeError      string
	DateError          string
	TimeError          string
	FileError          string
	ImageError         string
}

// defaulter is implemented by built-in questions so chains can fill in
// configured fallback texts.
type defaulter interface {
	applyDefaults(d Defaults)
}

// base is the common part of the built-in questions. It provides the plain
// text prompt, the text response and the hook-wrapping validation flow.
type base struct {
	// Text is the question text sent to the user.
	Text string

	// ErrorText is sent when validation rejects the response. Empty means
	// the configured default for the question kind.
	ErrorText string

	// Before runs on the raw response before the built-in validation.
	// Returning a *ValidationError re-asks the question.
	Before func(response any) (any, error)

	// After runs on the validated value after the built-in validation.
	After func(response any) (any, error)
}

// Ask returns a plain text prompt.
func (b *base) Ask(ctx context.Context, ex *Exchange) (*Prompt, error) {
	return &Prompt{Text: b.Text}, nil
}

// Response returns the reply's message text.
func (b *base) Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error) {
	return ans.Text, nil
}

// validate runs Before, the question's own check and After, in that order.
func (b *base) validate(response any, internal func(any) (any, error)) (any, error) {
	var err error
	if b.Before != nil {
		if response, err = b.Before(response); err != nil {
			return nil, err
		}
	}
	if internal != nil {
		if response, err = internal(response); err != nil {
			return nil, err
		}
	}
	if b.After != nil {
		if response, err = b.After(response); err != nil {
			return nil, err
		}
	}
	return response, nil
}

// Int returns a pointer to v, for the optional bound fields on Integer.
func Int(v int) *int {
	return &v
}
