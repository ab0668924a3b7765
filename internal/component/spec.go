package component

import (
	"fmt"
	"maps"
	"strings"

	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Dimensions is the initial size requested for the child window
type Dimensions struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Spec describes a component as both the parent and the child know it
type Spec struct {
	Tag            string                      `yaml:"tag" json:"tag"`
	Name           string                      `yaml:"name,omitempty" json:"name,omitempty"`
	Dimensions     *Dimensions                 `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Contexts       map[models.ContextType]bool `yaml:"contexts,omitempty" json:"contexts,omitempty"`
	DefaultContext models.ContextType          `yaml:"defaultContext,omitempty" json:"defaultContext,omitempty"`
	AutoResize     bool                        `yaml:"autoResize,omitempty" json:"autoResize,omitempty"`
	Singleton      bool                        `yaml:"singleton,omitempty" json:"singleton,omitempty"`
	DefaultProps   map[string]any              `yaml:"defaultProps,omitempty" json:"defaultProps,omitempty"`
}

// normalize validates s and fills in defaults
func (s Spec) normalize() (Spec, error) {
	if s.Tag == "" {
		return Spec{}, fmt.Errorf("%w: tag is required", ErrInvalidSpec)
	}

	if d := s.Dimensions; d != nil && (d.Width <= 0 || d.Height <= 0) {
		return Spec{}, fmt.Errorf("%w: [%s] dimensions must be positive, got %dx%d",
			ErrInvalidSpec, s.Tag, d.Width, d.Height)
	}

	if s.Name == "" {
		s.Name = strings.ReplaceAll(s.Tag, "-", "_")
	}

	contexts := make(map[models.ContextType]bool, len(models.ContextTypes))
	for _, ct := range models.ContextTypes {
		contexts[ct] = true
	}
	for ct, allowed := range s.Contexts {
		if !ct.Valid() {
			return Spec{}, fmt.Errorf("%w: [%s] unknown context %q", ErrInvalidSpec, s.Tag, ct)
		}
		contexts[ct] = allowed
	}
	s.Contexts = contexts

	if s.DefaultContext != "" && !s.Contexts[s.DefaultContext] {
		return Spec{}, fmt.Errorf("%w: [%s] default context %s is not allowed",
			ErrInvalidSpec, s.Tag, s.DefaultContext)
	}

	s.DefaultProps = maps.Clone(s.DefaultProps)

	return s, nil
}
