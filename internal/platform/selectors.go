package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors are the chains the Truth adapter queries, ordered most specific
// first. They can be overridden from a YAML file so a markup change on the
// platform side doesn't need a rebuild.
type Selectors struct {
	Content   []string `yaml:"content"`
	Timestamp []string `yaml:"timestamp"`
	Author    []string `yaml:"author"`
	Avatar    []string `yaml:"avatar"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Content: []string{
			".post-content", ".truth-content", ".status__content",
			"article .content", ".truth-body",
		},
		Timestamp: []string{".post-date", ".truth-date", "time", ".status__time"},
		Author:    []string{".post-author", ".truth-author", ".author-name"},
		Avatar:    []string{".avatar img", ".profile-image img"},
	}
}

func (s Selectors) empty() bool {
	return len(s.Content) == 0 && len(s.Timestamp) == 0 &&
		len(s.Author) == 0 && len(s.Avatar) == 0
}

// LoadSelectors reads a YAML override file. Chains absent from the file keep
// their built-in defaults.
func LoadSelectors(path string) (Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selectors{}, fmt.Errorf("read selectors file: %w", err)
	}
	s := DefaultSelectors()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Selectors{}, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	return s, nil
}
