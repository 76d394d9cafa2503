package action

import (
	"strings"

	"toribot/pkg/question"
)

// ParamKind classifies what a declared parameter resolves to. Kinds are
// inferred from the parameter name once at registration and cached, so no
// classification happens per call.
type ParamKind int

const (
	// KindUnknown parameters resolve to nil with a warning. A typo in a
	// parameter name must not take the bot down.
	KindUnknown ParamKind = iota

	// KindUpdate resolves to the inbound update.
	KindUpdate

	// KindContext resolves to the invocation's context.Context.
	KindContext

	// KindLogger resolves to the per-action bound logger.
	KindLogger

	// KindUser resolves to the authenticated user record.
	KindUser

	// KindTemplate resolves to one compiled message template, found by
	// convention or by the parameter's explicit file binding.
	KindTemplate

	// KindTemplates resolves to the map of every discovered template.
	KindTemplates

	// KindData resolves to rows fetched from a datasource request, found
	// by convention or by the parameter's explicit file binding.
	KindData

	// KindQuestion resolves to the answer collected by the parameter's
	// question during the pre-invocation conversation.
	KindQuestion
)

// String names the kind for logs.
func (k ParamKind) String() string {
	switch k {
	case KindUpdate:
		return "update"
	case KindContext:
		return "context"
	case KindLogger:
		return "logger"
	case KindUser:
		return "user"
	case KindTemplate:
		return "template"
	case KindTemplates:
		return "templates"
	case KindData:
		return "data"
	case KindQuestion:
		return "question"
	default:
		return "unknown"
	}
}

// Param declares one handler parameter. The zero binding resolves by naming
// convention; File names a specific template or request file instead.
type Param struct {
	// Name selects the resolution rule: update, context, logger, user,
	// template or template_*, templates, data or data_*. Any other name
	// resolves to nil unless Question is set.
	Name string

	// File explicitly binds the parameter to a template or request file,
	// verbatim. Only meaningful for template and data parameters.
	File string

	// Question attaches a conversational prompt whose validated answer
	// becomes the parameter's value. It overrides name-based inference.
	Question question.Question

	// kind caches the inferred classification.
	kind ParamKind
}

// classify infers the parameter's kind from its declaration.
func (p *Param) classify() ParamKind {
	if p.Question != nil {
		return KindQuestion
	}
	switch {
	case p.Name == "update":
		return KindUpdate
	case p.Name == "context":
		return KindContext
	case p.Name == "logger":
		return KindLogger
	case p.Name == "user":
		return KindUser
	case p.Name == "templates":
		return KindTemplates
	case strings.HasPrefix(p.Name, "template"):
		return KindTemplate
	case p.Name == "data" || strings.HasPrefix(p.Name, "data_"):
		return KindData
	default:
		return KindUnknown
	}
}

// Kind returns the cached classification.
func (p *Param) Kind() ParamKind {
	return p.kind
}
