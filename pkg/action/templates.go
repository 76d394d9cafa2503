package action

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"toribot/pkg/logger"
)

// templateExt is the suffix of message template files discovered in an
// action's directory.
const templateExt = ".md.tmpl"

// discoverTemplates compiles every message template in the action's
// directory, keyed by filename. Templates are compiled once at registration
// and rendered fresh per call by the handler.
func discoverTemplates(dir string) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	if dir == "" {
		return templates, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return templates, nil
		}
		return nil, fmt.Errorf("listing action directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), templateExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		tmpl, err := template.ParseFiles(path)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}
		templates[entry.Name()] = tmpl
	}
	return templates, nil
}

// discoverRequests finds the datasource request files in the action's
// directory, keyed by filename. Request files are named
// <key>.<datasource>.sql; files matching no configured datasource are
// discarded with a warning.
func discoverRequests(log *logger.Logger, dir string, sourceNames map[string]struct{}) (map[string]string, error) {
	requests := make(map[string]string)
	if dir == "" {
		return requests, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return requests, nil
		}
		return nil, fmt.Errorf("listing action directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		if _, ok := sourceNames[requestSource(name)]; !ok {
			log.Warn("Request file does not match any datasource, it will be ignored",
				zap.String("file", name))
			continue
		}
		requests[name] = filepath.Join(dir, name)
	}
	return requests, nil
}

// requestSource extracts the datasource name from a request filename of the
// form <key>.<datasource>.sql. It returns "" when the name has no datasource
// segment.
func requestSource(name string) string {
	stem := strings.TrimSuffix(name, ".sql")
	if i := strings.LastIndex(stem, "."); i >= 0 {
		return stem[i+1:]
	}
	return ""
}
