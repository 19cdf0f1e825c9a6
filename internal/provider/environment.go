package provider

import (
	"reflect"
	"sort"
	"sync"
)

// Binding is one named global in the host environment.
type Binding struct {
	Name  string
	Value any
}

// Environment is the host's set of global bindings. A browser host maps it to
// window properties; tests and the CLI use a StaticEnvironment.
type Environment interface {
	// Lookup returns the value bound to name.
	Lookup(name string) (any, bool)

	// Bindings lists every global, used only by the heuristic scan.
	Bindings() []Binding
}

// StaticEnvironment is an in-memory Environment.
type StaticEnvironment struct {
	mu     sync.RWMutex
	values map[string]any
}

var _ Environment = (*StaticEnvironment)(nil)

// NewStaticEnvironment creates an environment from a name to value map.
func NewStaticEnvironment(values map[string]any) *StaticEnvironment {
	env := &StaticEnvironment{values: make(map[string]any, len(values))}
	for k, v := range values {
		env.values[k] = v
	}
	return env
}

// Set binds a global, replacing any previous value. Injection may happen late.
func (e *StaticEnvironment) Set(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[name] = value
}

// Delete removes a global.
func (e *StaticEnvironment) Delete(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.values, name)
}

// Lookup returns the value bound to name.
func (e *StaticEnvironment) Lookup(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[name]
	return v, ok
}

// Bindings returns all globals sorted by name.
func (e *StaticEnvironment) Bindings() []Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Binding, 0, len(e.values))
	for k, v := range e.values {
		out = append(out, Binding{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
