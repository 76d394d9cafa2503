package question

import (
	"context"
	"strings"
)

// Bool asks a yes/no question. Accepted spellings come from the configured
// value sets, merged with any extra values the question declares.
type Bool struct {
	base

	// TrueValues and FalseValues extend the configured accepted spellings.
	// Matching is case-insensitive on the trimmed reply.
	TrueValues  []string
	FalseValues []string
}

// NewBool creates a boolean question with the given prompt text.
func NewBool(text string) *Bool {
	return &Bool{base: base{Text: text}}
}

// Validate maps the response onto true or false.
func (q *Bool) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, q.check)
}

func (q *Bool) check(response any) (any, error) {
	switch v := response.(type) {
	case bool:
		return v, nil
	case string:
		lowered := strings.ToLower(strings.TrimSpace(v))
		for _, t := range q.TrueValues {
			if lowered == strings.ToLower(t) {
				return true, nil
			}
		}
		for _, f := range q.FalseValues {
			if lowered == strings.ToLower(f) {
				return false, nil
			}
		}
		return nil, Invalid(q.ErrorText)
	default:
		return nil, Invalid(q.ErrorText)
	}
}

func (q *Bool) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.BoolError
	}
	q.TrueValues = mergeValues(d.BoolTrueValues, q.TrueValues)
	q.FalseValues = mergeValues(d.BoolFalseValues, q.FalseValues)
}

// mergeValues unions the configured and declared value sets, preserving
// order and dropping duplicates.
func mergeValues(configured, declared []string) []string {
	seen := make(map[string]struct{}, len(configured)+len(declared))
	out := make([]string, 0, len(configured)+len(declared))
	for _, v := range append(append([]string{}, configured...), declared...) {
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
