package expression

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
)

// Path is an assignable location such as "flowScope.booking.hotel".
// Scope is empty for paths relative to a plain attribute map.
type Path struct {
	Scope string
	Keys  []string
}

// ParsePath parses a dotted path. When the first segment names a scope, it becomes Path.Scope.
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return Path{}, fmt.Errorf("invalid path %q", s)
		}
	}
	switch parts[0] {
	case RequestScope, FlashScope, ViewScope, FlowScope, ConversationScope:
		if len(parts) == 1 {
			return Path{}, fmt.Errorf("path %q names a scope but no attribute", s)
		}
		return Path{Scope: parts[0], Keys: parts[1:]}, nil
	}
	return Path{Keys: parts}, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// WithDefaultScope returns p qualified by scope when p names none.
func (p Path) WithDefaultScope(scope string) Path {
	if p.Scope == "" {
		p.Scope = scope
	}
	return p
}

// String renders the path back to its dotted form.
func (p Path) String() string {
	if p.Scope == "" {
		return strings.Join(p.Keys, ".")
	}
	return p.Scope + "." + strings.Join(p.Keys, ".")
}

// Set assigns value at the path inside root. Intermediate maps are created as needed.
func (p Path) Set(root domain.Attributes, value any) error {
	if root == nil {
		return fmt.Errorf("cannot assign %s: no target map", p)
	}
	m := map[string]any(root)
	for i, k := range p.Keys[:len(p.Keys)-1] {
		next, ok := m[k]
		if !ok || next == nil {
			child := make(map[string]any)
			m[k] = child
			m = child
			continue
		}
		switch c := next.(type) {
		case map[string]any:
			m = c
		case domain.Attributes:
			m = c
		default:
			return fmt.Errorf("cannot assign %s: %s is a %T", p, strings.Join(p.Keys[:i+1], "."), next)
		}
	}
	m[p.Keys[len(p.Keys)-1]] = value
	return nil
}

// Assign resolves the target scope of p through scopes and sets value there.
// Paths without a scope are rejected.
func (p Path) Assign(scopes Scopes, value any) error {
	root, ok := scopes.Scope(p.Scope)
	if !ok {
		return fmt.Errorf("cannot assign %s: scope %q unavailable", p, p.Scope)
	}
	return p.Set(root, value)
}
