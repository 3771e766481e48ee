package tool

import (
	"fmt"
	"sort"
	"sync"
)

// UnknownToolError reports a requested tool name with no registered factory.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Factory produces a fresh tool instance. Tools that carry per-run state
// (the mail tool's OAuth token, for example) rely on getting a new instance
// per resolution.
type Factory func() Tool

// Registry maps tool names to factories. Resolution is all-or-nothing: one
// unknown name fails the whole request so an agent is never silently built
// with a subset of its declared tools.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs a factory under name, replacing any previous entry.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve instantiates one tool per requested name. The factory set is read
// under a single lock so a concurrent Register cannot produce a mixed view.
func (r *Registry) Resolve(names []string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, &UnknownToolError{Name: name}
		}
		tools = append(tools, f())
	}
	return tools, nil
}

// Names lists the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
