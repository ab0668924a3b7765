package component

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/framebridge/internal/child"
)

// ErrNotFound is returned for tags nobody registered
var ErrNotFound = errors.New("component not found")

// Registry holds components by tag. All of them share one attachment registry,
// so a window can only ever host a single component.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	attached   *child.Registry
	logger     *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		components: make(map[string]*Component),
		attached:   child.NewRegistry(),
		logger:     logger,
	}
}

// Register validates spec and adds it under its tag
func (r *Registry) Register(spec Spec) (*Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[spec.Tag]; exists && spec.Tag != "" {
		return nil, fmt.Errorf("%w: tag %s is already registered", ErrInvalidSpec, spec.Tag)
	}

	c, err := New(spec, r.attached, r.logger)
	if err != nil {
		return nil, err
	}
	r.components[c.Tag()] = c

	return c, nil
}

// Get returns the component registered for tag
func (r *Registry) Get(tag string) (*Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	return c, nil
}

// Tags returns the registered tags, sorted
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.components))
	for tag := range r.components {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Attachments returns the registry recording which windows host a component
func (r *Registry) Attachments() *child.Registry {
	return r.attached
}

type specFile struct {
	Components []Spec `yaml:"components"`
}

// LoadFile registers every component listed in a YAML file:
//
//	components:
//	  - tag: my-login
//	    dimensions: {width: 400, height: 300}
//	    contexts: {popup: false}
//	    autoResize: true
func (r *Registry) LoadFile(path string) ([]*Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component file: %w", err)
	}

	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse component file %s: %w", path, err)
	}

	loaded := make([]*Component, 0, len(file.Components))
	for i, spec := range file.Components {
		c, err := r.Register(spec)
		if err != nil {
			return loaded, fmt.Errorf("component %d in %s: %w", i, path, err)
		}
		loaded = append(loaded, c)
	}

	r.logger.Info("Loaded components", zap.String("path", path), zap.Int("count", len(loaded)))
	return loaded, nil
}
