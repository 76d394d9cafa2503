package media

import (
	"fmt"
	"strings"
	"text/template"
)

// Pages is a paginated text message. The items are chunked, each chunk is
// rendered through PageTemplate, and the result is persisted server-side so
// the user can navigate with forward/back buttons until the state expires.
type Pages struct {
	// Data is the full item sequence to paginate.
	Data []any

	// PageTemplate renders one page. It receives {"Data": chunk} merged
	// with Vars.
	PageTemplate *template.Template

	// FirstPageTemplate optionally renders an extra leading page. It
	// receives Vars only, no Data chunk.
	FirstPageTemplate *template.Template

	// ItemsPerPage overrides the configured page size when positive.
	ItemsPerPage int

	// Vars is passed to every template execution.
	Vars map[string]any
}

// Render produces the page texts. defaultItemsPerPage applies when the
// Pages value does not set its own page size.
func (p *Pages) Render(defaultItemsPerPage int) ([]string, error) {
	if p.PageTemplate == nil {
		return nil, fmt.Errorf("pages require a page template")
	}

	perPage := p.ItemsPerPage
	if perPage <= 0 {
		perPage = defaultItemsPerPage
	}
	if perPage <= 0 {
		perPage = 5
	}

	var pages []string
	for start := 0; start < len(p.Data); start += perPage {
		end := start + perPage
		if end > len(p.Data) {
			end = len(p.Data)
		}

		vars := make(map[string]any, len(p.Vars)+1)
		for k, v := range p.Vars {
			vars[k] = v
		}
		vars["Data"] = p.Data[start:end]

		var sb strings.Builder
		if err := p.PageTemplate.Execute(&sb, vars); err != nil {
			return nil, fmt.Errorf("rendering page: %w", err)
		}
		pages = append(pages, sb.String())
	}

	if p.FirstPageTemplate != nil {
		var sb strings.Builder
		if err := p.FirstPageTemplate.Execute(&sb, p.Vars); err != nil {
			return nil, fmt.Errorf("rendering first page: %w", err)
		}
		pages = append([]string{sb.String()}, pages...)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pages rendered no content")
	}
	return pages, nil
}
