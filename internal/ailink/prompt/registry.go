package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tutorlink/tutorlink/internal/core"
)

// Registry provides access to prompt definitions by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry stores prompts keyed by lower-cased slug.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// NewRegistry builds a registry from prompts. Duplicate slugs are an error.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		key := slugKey(p.Config.Slug)
		if key == "" {
			return nil, fmt.Errorf("prompt %s: missing slug", p.Source)
		}
		if prev, ok := reg.prompts[key]; ok {
			return nil, fmt.Errorf("duplicate prompt slug %q (%s, %s)", key, prev.Source, p.Source)
		}
		reg.prompts[key] = p
	}
	return reg, nil
}

func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	key := slugKey(slug)
	if key == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r.prompts[key]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", key)
	}
	return p, nil
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	result := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return slugKey(result[i].Config.Slug) < slugKey(result[j].Config.Slug)
	})
	return result
}

// Summary is a flattened view of a prompt for listings.
type Summary struct {
	Slug     string
	Name     string
	Shape    core.Shape
	Role     string
	Required []string
}

// Summaries lists every prompt in reg as a Summary.
func Summaries(reg Registry) []Summary {
	if reg == nil {
		return nil
	}
	prompts := reg.List()
	out := make([]Summary, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, Summary{
			Slug:     p.Config.Slug,
			Name:     p.Config.Name,
			Shape:    p.Shape(),
			Role:     p.Config.Role,
			Required: append([]string(nil), p.Config.Input.RequiredVariables...),
		})
	}
	return out
}

func slugKey(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
