package question

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Integer asks for a whole number, optionally constrained by bounds.
type Integer struct {
	base

	// LE and GE are inclusive bounds; LT and GT are exclusive bounds.
	// Nil means unconstrained.
	LE *int
	GE *int
	LT *int
	GT *int

	// MultipleOf requires the value to be divisible by it.
	MultipleOf *int
}

// NewInteger creates an unconstrained integer question.
func NewInteger(text string) *Integer {
	return &Integer{base: base{Text: text}}
}

// Validate parses the response as an integer and checks the bounds.
func (q *Integer) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, q.check)
}

func (q *Integer) check(response any) (any, error) {
	text, ok := response.(string)
	if !ok {
		return nil, Invalid(q.ErrorText)
	}

	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil, Invalid(q.ErrorText)
	}

	if q.LE != nil && value > *q.LE {
		return nil, Invalid(fmt.Sprintf("The provided integer must be less than or equal to %d.", *q.LE))
	}
	if q.GE != nil && value < *q.GE {
		return nil, Invalid(fmt.Sprintf("The provided integer must be greater than or equal to %d.", *q.GE))
	}
	if q.LT != nil && value >= *q.LT {
		return nil, Invalid(fmt.Sprintf("The provided integer must be less than %d.", *q.LT))
	}
	if q.GT != nil && value <= *q.GT {
		return nil, Invalid(fmt.Sprintf("The provided integer must be greater than %d.", *q.GT))
	}
	if q.MultipleOf != nil && value%*q.MultipleOf != 0 {
		return nil, Invalid(fmt.Sprintf("The provided integer must be a multiple of %d.", *q.MultipleOf))
	}

	return value, nil
}

func (q *Integer) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.IntegerError
	}
}
