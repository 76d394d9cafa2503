package media

import (
	"strings"
	"testing"
	"text/template"
)

func pageTemplate(t *testing.T, text string) *template.Template {
	t.Helper()
	tmpl, err := template.New("page").Parse(text)
	if err != nil {
		t.Fatalf("Failed to parse template: %v", err)
	}
	return tmpl
}

func TestPagesRenderChunksData(t *testing.T) {
	p := &Pages{
		Data:         []any{"a", "b", "c", "d", "e"},
		PageTemplate: pageTemplate(t, "{{range .Data}}{{.}}{{end}}"),
		ItemsPerPage: 2,
	}

	pages, err := p.Render(5)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(pages))
	}
	if pages[0] != "ab" || pages[1] != "cd" || pages[2] != "e" {
		t.Errorf("Unexpected page contents: %v", pages)
	}
}

func TestPagesRenderUsesDefaultPageSize(t *testing.T) {
	p := &Pages{
		Data:         []any{"a", "b", "c"},
		PageTemplate: pageTemplate(t, "{{len .Data}}"),
	}

	pages, err := p.Render(2)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages with the configured size, got %d", len(pages))
	}
}

func TestPagesRenderVarsReachEveryPage(t *testing.T) {
	p := &Pages{
		Data:         []any{"a", "b"},
		PageTemplate: pageTemplate(t, "{{.Title}}: {{range .Data}}{{.}}{{end}}"),
		ItemsPerPage: 1,
		Vars:         map[string]any{"Title": "Letters"},
	}

	pages, err := p.Render(5)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	for _, page := range pages {
		if !strings.HasPrefix(page, "Letters: ") {
			t.Errorf("Expected vars on every page, got %q", page)
		}
	}
}

func TestPagesRenderFirstPage(t *testing.T) {
	p := &Pages{
		Data:              []any{"a", "b"},
		PageTemplate:      pageTemplate(t, "{{range .Data}}{{.}}{{end}}"),
		FirstPageTemplate: pageTemplate(t, "Welcome, {{.Name}}"),
		ItemsPerPage:      1,
		Vars:              map[string]any{"Name": "Alice"},
	}

	pages, err := p.Render(5)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("Expected a leading page plus 2 data pages, got %d", len(pages))
	}
	if pages[0] != "Welcome, Alice" {
		t.Errorf("Expected the first page template to lead, got %q", pages[0])
	}
}

func TestPagesRenderRequiresTemplate(t *testing.T) {
	p := &Pages{Data: []any{"a"}}
	if _, err := p.Render(5); err == nil {
		t.Fatal("Expected error for missing page template, got nil")
	}
}

func TestPagesRenderRejectsEmptyOutput(t *testing.T) {
	p := &Pages{PageTemplate: pageTemplate(t, "x")}
	if _, err := p.Render(5); err == nil {
		t.Fatal("Expected error for no data and no first page, got nil")
	}
}
