// Package policy filters which methods of a method table are exposed. The
// block list wins over the allow list; an empty allow list exposes every
// method. Names match case-insensitively.
package policy

import (
	"fmt"
	"strings"
)

// Policy represents a method exposure policy. A nil *Policy exposes everything.
type Policy struct {
	AllowList []string
	BlockList []string
}

// Config represents the declarative, serialisable form of a Policy.
type Config struct {
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a Config to a Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates BlockList and AllowList for a method name.
func (p *Policy) IsAllowed(method string) bool {
	if p == nil {
		return true
	}
	if contains(p.BlockList, method) {
		return false
	}
	if len(p.AllowList) == 0 {
		return true
	}
	return contains(p.AllowList, method)
}

// Validate returns an error when the allow list names a method that is not declared.
func (p *Policy) Validate(declared []string) error {
	if p == nil {
		return nil
	}
	for _, name := range p.AllowList {
		if !contains(declared, name) {
			return fmt.Errorf("exposed method %v is not declared", name)
		}
	}
	return nil
}

func contains(list []string, name string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}
