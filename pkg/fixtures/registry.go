package fixtures

import (
	"fmt"
	"reflect"
	"strings"
)

// Registry maps fixture class names to GORM models.
type Registry struct {
	types map[string]reflect.Type
	names map[reflect.Type]string
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		types: map[string]reflect.Type{},
		names: map[reflect.Type]string{},
	}
}

// Register binds name to the model type of model (a struct or a pointer to
// one). The first name registered for a type is used for its references.
func (r *Registry) Register(name string, model interface{}) error {
	name = strings.TrimSpace(name)
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("fixture class %q: model must be a struct, got %T", name, model)
	}
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("fixture class %q already registered", name)
	}
	r.types[name] = t
	if _, ok := r.names[t]; !ok {
		r.names[t] = name
	}
	r.order = append(r.order, name)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, model interface{}) *Registry {
	if err := r.Register(name, model); err != nil {
		panic(err)
	}
	return r
}

// Names returns the registered class names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) typeOf(name string) (reflect.Type, error) {
	t, ok := r.types[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return t, nil
}

func (r *Registry) nameOf(t reflect.Type) (string, bool) {
	name, ok := r.names[t]
	return name, ok
}
