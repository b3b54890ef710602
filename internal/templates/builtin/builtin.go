// Package builtin holds the project templates shipped with the server.
package builtin

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taskdeck/taskdeck-backend/internal/templates/domain"
)

//go:embed *.yaml
var files embed.FS

// Load parses and validates every embedded template, ordered by slug.
func Load() ([]domain.Template, error) {
	names, err := fs.Glob(files, "*.yaml")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Template, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}

		var t domain.Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if t.Slug == "" {
			return nil, fmt.Errorf("%s: slug is required", name)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		t.Builtin = true
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
