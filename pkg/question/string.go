package question

import "context"

// String asks for free text and accepts any reply.
type String struct {
	base
}

// NewString creates a string question with the given prompt text.
func NewString(text string) *String {
	return &String{base: base{Text: text}}
}

// Validate accepts any text response.
func (q *String) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, nil)
}

func (q *String) applyDefaults(d Defaults) {}
