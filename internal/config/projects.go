package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadProjects reads projects.yaml at path. A missing file is an empty
// list, not an error.
func LoadProjects(path string) (Projects, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Projects{}, nil
	}
	if err != nil {
		return Projects{}, fmt.Errorf("read projects file: %w", err)
	}
	var p Projects
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Projects{}, fmt.Errorf("parse projects file: %w", err)
	}
	for i, proj := range p.Projects {
		if proj.Slug == "" {
			return Projects{}, fmt.Errorf("projects file: entry %d has no slug", i)
		}
	}
	return p, nil
}

// SaveProjects writes projects.yaml.
func SaveProjects(path string, p Projects) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode projects file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the tracked project with the given slug.
func (p Projects) Find(slug string) (Project, bool) {
	for _, proj := range p.Projects {
		if proj.Slug == slug {
			return proj, true
		}
	}
	return Project{}, false
}

// Add appends a project; duplicate slugs are rejected.
func (p *Projects) Add(proj Project) error {
	if _, ok := p.Find(proj.Slug); ok {
		return fmt.Errorf("project %s is already tracked", proj.Slug)
	}
	p.Projects = append(p.Projects, proj)
	return nil
}

// Remove drops a project by slug, reporting whether it was present.
func (p *Projects) Remove(slug string) bool {
	for i, proj := range p.Projects {
		if proj.Slug == slug {
			p.Projects = append(p.Projects[:i], p.Projects[i+1:]...)
			return true
		}
	}
	return false
}

// Slugs returns the tracked slug set for orphan detection.
func (p Projects) Slugs() map[string]bool {
	out := make(map[string]bool, len(p.Projects))
	for _, proj := range p.Projects {
		out[proj.Slug] = true
	}
	return out
}
