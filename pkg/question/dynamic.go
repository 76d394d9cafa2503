package question

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// DynamicChoice asks the user to pick one of a set of options fetched from a
// datasource at ask time. The request file is named <key>.<datasource>.sql;
// the datasource segment selects which configured source runs it.
type DynamicChoice struct {
	base

	// Request is the request file path. Relative paths resolve against the
	// questions directory under the working directory.
	Request string

	// Reply selects the presentation. Defaults to ReplySimple.
	Reply ReplyType
}

// NewDynamicChoice creates a dynamic choice question backed by the given
// request file.
func NewDynamicChoice(text, request string) (*DynamicChoice, error) {
	if request == "" {
		return nil, fmt.Errorf("a request file must be provided for dynamic choice questions")
	}
	if !filepath.IsAbs(request) {
		request = filepath.Join("questions", request)
	}
	return &DynamicChoice{base: base{Text: text}, Request: request}, nil
}

// sourceName extracts the datasource name from the request file name.
func (q *DynamicChoice) sourceName() string {
	stem := strings.TrimSuffix(filepath.Base(q.Request), filepath.Ext(q.Request))
	if i := strings.LastIndex(stem, "."); i >= 0 {
		return stem[i+1:]
	}
	return stem
}

// fetchOptions runs the request and maps the rows onto options. Rows with
// two or more columns map the first column's text onto the second column's
// value; single-column rows use the value as its own label.
func (q *DynamicChoice) fetchOptions(ctx context.Context, ex *Exchange) ([]Option, error) {
	name := q.sourceName()
	ds, ok := ex.Sources[name]
	if !ok {
		return nil, fmt.Errorf("no datasource named %q for request %s", name, q.Request)
	}

	rows, err := ds.Fetch(ctx, q.Request)
	if err != nil {
		return nil, fmt.Errorf("fetching choices: %w", err)
	}

	var options []Option
	for _, row := range rows {
		switch {
		case row.Len() >= 2:
			options = append(options, Option{
				Label: strings.TrimSpace(fmt.Sprint(row.Index(0))),
				Value: row.Index(1),
			})
		case row.Len() == 1:
			options = append(options, Option{
				Label: strings.TrimSpace(fmt.Sprint(row.Index(0))),
				Value: row.Index(0),
			})
		}
	}
	return options, nil
}

// Ask fetches the current options, caches them in the conversation scratch
// for validation and builds the prompt.
func (q *DynamicChoice) Ask(ctx context.Context, ex *Exchange) (*Prompt, error) {
	options, err := q.fetchOptions(ctx, ex)
	if err != nil {
		return nil, err
	}
	ex.Scratch[q.scratchKey(ex)] = options
	return choicePrompt(q.Text, options, q.Reply, ex.Param), nil
}

// Response extracts the picked option label from the reply.
func (q *DynamicChoice) Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error) {
	return choiceResponse(ctx, ex, ans, q.Reply)
}

// Validate maps the picked label onto its value, using the option set cached
// at ask time so the answer matches what the user was shown.
func (q *DynamicChoice) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, func(response any) (any, error) {
		options, ok := ex.Scratch[q.scratchKey(ex)].([]Option)
		if !ok {
			return nil, fmt.Errorf("no cached choices for parameter %q", ex.Param)
		}
		return pickOption(options, response, q.ErrorText)
	})
}

func (q *DynamicChoice) scratchKey(ex *Exchange) string {
	return "choices:" + ex.Param
}

func (q *DynamicChoice) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.DynamicChoiceError
	}
}
