package types

import (
	"context"
	"strings"
)

// Handler executes one exposed method inside a worker.
type Handler func(ctx context.Context, args []interface{}) (interface{}, error)

// Method describes a function a worker exposes to the farm.
type Method struct {
	Name        string
	Description string
	Handler     Handler
}

// Methods is the statically declared method table of a worker module.
type Methods []Method

// Names returns method names in declaration order
func (m Methods) Names() []string {
	ret := make([]string, 0, len(m))
	for _, method := range m {
		ret = append(ret, method.Name)
	}
	return ret
}

// IsReserved reports whether the name uses the implementation-reserved prefix.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, "_")
}

// Index resolves the table into a name lookup. Duplicate names are rejected.
func (m Methods) Index() (map[string]Handler, error) {
	ret := make(map[string]Handler, len(m))
	for _, method := range m {
		if _, ok := ret[method.Name]; ok {
			return nil, &DuplicateMethodError{Name: method.Name}
		}
		ret[method.Name] = method.Handler
	}
	return ret, nil
}
